// Package xmatters maps the xMatters REST resources used by the sync jobs onto typed
// Go values and exposes their list endpoints as pagination.PageFunc values.
package xmatters

// Page is the envelope of every xMatters list endpoint.
type Page[T any] struct {
	Count int `json:"count"`
	Total int `json:"total"`
	Data  []T `json:"data"`
}

// Properties holds the custom fields of a person. Values are strings,
// booleans or numbers depending on the field type.
type Properties map[string]any

// Person is an xMatters user.
type Person struct {
	ID            string     `json:"id,omitempty"`
	TargetName    string     `json:"targetName,omitempty"`
	FirstName     string     `json:"firstName,omitempty"`
	LastName      string     `json:"lastName,omitempty"`
	WebLogin      string     `json:"webLogin,omitempty"`
	RecipientType string     `json:"recipientType,omitempty"`
	Status        string     `json:"status,omitempty"`
	Language      string     `json:"language,omitempty"`
	Timezone      string     `json:"timezone,omitempty"`
	Roles         []string   `json:"roles,omitempty"`
	Site          string     `json:"site,omitempty"`
	Supervisors   []string   `json:"supervisors,omitempty"`
	Properties    Properties `json:"properties,omitempty"`

	// Devices is only populated when listed with embed=devices.
	Devices *Page[Device] `json:"devices,omitempty"`
}

// PersonUpdate modifies an existing person. Only the set fields change.
type PersonUpdate struct {
	ID         string     `json:"id"`
	TargetName string     `json:"targetName,omitempty"`
	Properties Properties `json:"properties,omitempty"`
}

// Device types the jobs look at.
const (
	DeviceTypeEmail       = "EMAIL"
	DeviceTypeVoice       = "VOICE"
	DeviceTypeTextPhone   = "TEXT_PHONE"
	DeviceTypeAndroidPush = "ANDROID_PUSH"
	DeviceTypeApplePush   = "APPLE_PUSH"
)

// Status values shared by people and devices.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Device is a person's notification device.
type Device struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	TargetName string `json:"targetName,omitempty"`
	DeviceType string `json:"deviceType,omitempty"`
	Status     string `json:"status,omitempty"`
}

// DeviceUpdate modifies an existing device.
type DeviceUpdate struct {
	ID         string `json:"id"`
	DeviceType string `json:"deviceType"`
	Status     string `json:"status"`
}

// Reference is an id/name pair such as an event's plan or form.
type Reference struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Recipient types.
const (
	RecipientPerson      = "PERSON"
	RecipientGroup       = "GROUP"
	RecipientDynamicTeam = "DYNAMIC_TEAM"
)

// Recipient is a targeted recipient of an event or notification.
type Recipient struct {
	ID            string `json:"id,omitempty"`
	TargetName    string `json:"targetName"`
	RecipientType string `json:"recipientType,omitempty"`
}

// Event is an xMatters event.
type Event struct {
	ID      string    `json:"id"`
	EventID string    `json:"eventId"`
	Created string    `json:"created"`
	Plan    Reference `json:"plan"`
	Form    Reference `json:"form"`

	// Recipients is only populated when listed with embed=targetedRecipients.
	Recipients *Page[Recipient] `json:"recipients,omitempty"`
}

// Delivery statuses reported by the user-deliveries endpoint.
const (
	DeliveryResponded = "RESPONDED"
	DeliveryDelivered = "DELIVERED"
)

// Notification is one notification within a user delivery.
type Notification struct {
	Category  string    `json:"category"`
	Recipient Recipient `json:"recipient"`
}

// Response is the reply a user selected.
type Response struct {
	Text string `json:"text"`
}

// Delivery is the delivery state of an event for one user.
type Delivery struct {
	Person         Recipient           `json:"person"`
	DeliveryStatus string              `json:"deliveryStatus"`
	Response       *Response           `json:"response,omitempty"`
	Notifications  *Page[Notification] `json:"notifications,omitempty"`
}
