package domain

// StopStatus represents the state of one ordered sub-task of a mandadito.
type StopStatus string

const (
	StopStatusPending    StopStatus = "pending"
	StopStatusInProgress StopStatus = "in_progress"
	StopStatusCompleted  StopStatus = "completed"
	StopStatusSkipped    StopStatus = "skipped"
)

// Stop is an ordered sub-task of a delivery/shopping request.
type Stop struct {
	ID        string
	RequestID string
	StopOrder int
	Address   string
	Lat       float64
	Lng       float64
	Status    StopStatus
}

// StopItem is a purchasable line item within a shopping stop.
type StopItem struct {
	ID          string
	StopID      string
	Name        string
	Quantity    int
	ActualCost  float64
	IsPurchased bool
}
