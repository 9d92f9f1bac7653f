package domain

const (
	PresenceOnline  = "online"
	PresenceAway    = "away"
	PresenceBusy    = "busy"
	PresenceOffline = "offline"
)

const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// Push channel tables. Each feed subscription is scoped to one of these plus a scope key.
const (
	TableNotifications = "notifications"
	TableMessages      = "messages"
	TablePresence      = "presence"
)

// PresenceScopeGlobal is the only scope of the presence table.
const PresenceScopeGlobal = "global"

const (
	EventInsert = "insert"
	EventUpdate = "update"
)

const (
	BookingStatusRequested = "requested"
	BookingStatusQuoted    = "quoted"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

const (
	NotifBookingRequested = "booking_requested"
	NotifQuoteReceived    = "quote_received"
	NotifBookingConfirmed = "booking_confirmed"
	NotifNewMessage       = "new_message"
)

const (
	CategoryBooking = "booking"
	CategoryChat    = "chat"
)
