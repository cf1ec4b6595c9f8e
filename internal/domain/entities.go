package domain

import "time"

// DefaultTripTitle is shown until an admin renames the trip.
const DefaultTripTitle = "Trip Planning"

// DefaultLodgingPrice is stored when a lodging option is added without a price.
const DefaultLodgingPrice = "Price not available"

// TripMeta is the trip metadata document.
type TripMeta struct {
	Title string `json:"title"`
}

// Authorship is embedded by every record that can be deleted by its author.
// AuthorID is canonical; AuthorName is kept for display only.
type Authorship struct {
	AuthorID   ParticipantID `json:"authorId"`
	AuthorName string        `json:"authorName"`
}

func (a Authorship) Author() ParticipantID { return a.AuthorID }

// AuthorshipOf stamps content created by actor.
func AuthorshipOf(actor Actor) Authorship {
	return Authorship{AuthorID: actor.ParticipantID, AuthorName: actor.Name}
}

// VoteKind is either like or dislike.
type VoteKind string

const (
	VoteLike    VoteKind = "like"
	VoteDislike VoteKind = "dislike"
)

func (k VoteKind) Valid() bool { return k == VoteLike || k == VoteDislike }

// Votes holds the names of participants who liked or disliked a lodging option.
// A name appears in at most one of the lists.
type Votes struct {
	Like    []string `json:"like"`
	Dislike []string `json:"dislike"`
}

// Comment is a note attached to a lodging option.
type Comment struct {
	AuthorID   ParticipantID `json:"authorId"`
	AuthorName string        `json:"authorName"`
	Text       string        `json:"text"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Lodging is a candidate place to stay.
type Lodging struct {
	Authorship

	Link        string    `json:"link"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
	Bedrooms    int       `json:"bedrooms"`
	Bathrooms   float64   `json:"bathrooms"`
	Guests      int       `json:"guests"`
	Votes       Votes     `json:"votes"`
	Comments    []Comment `json:"comments"`
}

// Expense is a payment made by one participant and shared by others.
type Expense struct {
	Authorship

	Description  string          `json:"description"`
	Amount       float64         `json:"amount"`
	PaidBy       ParticipantID   `json:"paidBy"`
	SplitBetween []ParticipantID `json:"splitBetween"`
}

// FoodType splits the food wishlist.
type FoodType string

const (
	FoodGrocery    FoodType = "grocery"
	FoodRestaurant FoodType = "restaurant"
)

func (t FoodType) Valid() bool { return t == FoodGrocery || t == FoodRestaurant }

// FoodItem is a grocery item or restaurant on the food wishlist.
type FoodItem struct {
	Authorship

	Name        string   `json:"name"`
	Description string   `json:"description"`
	WantedBy    string   `json:"wantedBy"`
	Type        FoodType `json:"type"`
	Completed   bool     `json:"completed"`
	Comment     string   `json:"comment"`
}

// Activity is a suggested thing to do during the trip.
type Activity struct {
	Authorship

	Name          string `json:"name"`
	Location      string `json:"location"`
	PreferredDate string `json:"preferredDate"`
	Link          string `json:"link"`
	SuggestedBy   string `json:"suggestedBy"`
	Completed     bool   `json:"completed"`
	Confirmed     bool   `json:"confirmed"`
}

// QuestionKind selects the truth or dare deck.
type QuestionKind string

const (
	QuestionTruth QuestionKind = "truth"
	QuestionDare  QuestionKind = "dare"
)

func (k QuestionKind) Valid() bool { return k == QuestionTruth || k == QuestionDare }

// Collection returns the custom question collection of the deck.
func (k QuestionKind) Collection() Collection {
	if k == QuestionDare {
		return CollectionDares
	}
	return CollectionTruths
}

// GameQuestion is a custom truth or dare question added by a participant.
type GameQuestion struct {
	Authorship

	Text string `json:"text"`
}
