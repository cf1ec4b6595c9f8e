package domain

import (
	"slices"
	"sort"
)

// Score is the number of likes minus the number of dislikes.
func (v Votes) Score() int {
	return len(v.Like) - len(v.Dislike)
}

// Apply records voter's vote: the voter is removed from both lists and then appended to the
// list of kind, so repeated votes are idempotent and switching moves the name.
func (v Votes) Apply(voter string, kind VoteKind) Votes {
	out := Votes{
		Like:    without(v.Like, voter),
		Dislike: without(v.Dislike, voter),
	}
	switch kind {
	case VoteLike:
		out.Like = append(out.Like, voter)
	case VoteDislike:
		out.Dislike = append(out.Dislike, voter)
	}
	return out
}

func without(names []string, name string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// RankByScore sorts items by vote score, highest first. Ties keep their input order.
func RankByScore[T any](items []T, votes func(T) Votes) {
	sort.SliceStable(items, func(i, j int) bool {
		return votes(items[i]).Score() > votes(items[j]).Score()
	})
}

// Balances returns, for every participant, the total amount they paid minus their share of
// every expense they split. Participants start at zero; payers or splitters missing from
// participants are still included.
func Balances(expenses []Expense, participants []ParticipantID) map[ParticipantID]float64 {
	out := make(map[ParticipantID]float64, len(participants))
	for _, p := range participants {
		out[p] = 0
	}
	for _, e := range expenses {
		if len(e.SplitBetween) == 0 {
			continue
		}
		out[e.PaidBy] += e.Amount
		share := e.Amount / float64(len(e.SplitBetween))
		for _, p := range e.SplitBetween {
			out[p] -= share
		}
	}
	return out
}

// FoodBoard is the food wishlist partitioned by type and status.
type FoodBoard[T any] struct {
	GroceryPending      []T `json:"groceryPending"`
	GroceryCompleted    []T `json:"groceryCompleted"`
	RestaurantPending   []T `json:"restaurantPending"`
	RestaurantCompleted []T `json:"restaurantCompleted"`
}

// PartitionFood splits items by type and completion, keeping input order within each list.
// Items with an unknown type are treated as groceries.
func PartitionFood[T any](items []T, item func(T) FoodItem) FoodBoard[T] {
	b := FoodBoard[T]{
		GroceryPending:      []T{},
		GroceryCompleted:    []T{},
		RestaurantPending:   []T{},
		RestaurantCompleted: []T{},
	}
	for _, it := range items {
		f := item(it)
		switch {
		case f.Type == FoodRestaurant && f.Completed:
			b.RestaurantCompleted = append(b.RestaurantCompleted, it)
		case f.Type == FoodRestaurant:
			b.RestaurantPending = append(b.RestaurantPending, it)
		case f.Completed:
			b.GroceryCompleted = append(b.GroceryCompleted, it)
		default:
			b.GroceryPending = append(b.GroceryPending, it)
		}
	}
	return b
}

// ActivityBoard is the activity list partitioned by status. Confirmed is a subset of
// Pending: a confirmed activity stays pending until it is completed.
type ActivityBoard[T any] struct {
	Confirmed []T `json:"confirmed"`
	Pending   []T `json:"pending"`
	Completed []T `json:"completed"`
}

func PartitionActivities[T any](items []T, activity func(T) Activity) ActivityBoard[T] {
	b := ActivityBoard[T]{Confirmed: []T{}, Pending: []T{}, Completed: []T{}}
	for _, it := range items {
		a := activity(it)
		if a.Completed {
			b.Completed = append(b.Completed, it)
			continue
		}
		b.Pending = append(b.Pending, it)
		if a.Confirmed {
			b.Confirmed = append(b.Confirmed, it)
		}
	}
	return b
}

// UniqueParticipants drops empty and repeated ids, keeping first occurrences.
func UniqueParticipants(ids []ParticipantID) []ParticipantID {
	out := make([]ParticipantID, 0, len(ids))
	for _, id := range ids {
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
