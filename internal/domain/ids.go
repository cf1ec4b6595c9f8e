package domain

// TripGroupID scopes every collection, subscription and participant.
type TripGroupID string

// ParticipantID identifies a participant within a trip group. It is generated on first
// join, or fixed for pre-provisioned admins.
type ParticipantID string

// RecordID is the storage-assigned identifier of a document inside a collection.
type RecordID string

// Collection names a per-trip-group collection in the document store.
type Collection string

const (
	CollectionParticipants Collection = "participants"
	CollectionLodging      Collection = "airbnbs"
	CollectionExpenses     Collection = "expenses"
	CollectionFood         Collection = "foodWishlist"
	CollectionActivities   Collection = "activities"
	CollectionTruths       Collection = "truthOrDare_truth"
	CollectionDares        Collection = "truthOrDare_dare"
	CollectionMeta         Collection = "meta"
)

// TripMetaID is the fixed document id of the trip metadata document in CollectionMeta.
const TripMetaID RecordID = "trip"
