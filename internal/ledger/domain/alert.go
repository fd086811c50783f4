package ledger

import "time"

const (
	SeverityAlert    = "ALERT"
	SeverityCritical = "CRITICAL"
)

const (
	DirectionLow  = "LOW"
	DirectionHigh = "HIGH"
)

// Channel names a notification delivery path.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Delivery records the outcome of sending an alert over one channel.
type Delivery struct {
	Attempted bool      `json:"attempted"`
	Succeeded bool      `json:"succeeded"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// AlertRecord is one threshold-breach alert with its per-channel delivery
// ledger. Terminal marks the record as settled: no further delivery updates
// are expected for it.
type AlertRecord struct {
	ID         string               `json:"id"`
	CompanyID  string               `json:"company_id"`
	SensorID   string               `json:"sensor_id"`
	LocationID string               `json:"location_id,omitempty"`
	SensorType string               `json:"sensor_type"`
	Severity   string               `json:"severity"`
	Direction  string               `json:"direction"`
	Value      float64              `json:"value"`
	Threshold  float64              `json:"threshold"`
	Unit       string               `json:"unit,omitempty"`
	Message    string               `json:"message"`
	Delivery   map[Channel]Delivery `json:"delivery"`
	Terminal   bool                 `json:"terminal"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Open reports whether the record still accepts delivery updates.
func (a *AlertRecord) Open() bool {
	return a != nil && !a.Terminal
}
