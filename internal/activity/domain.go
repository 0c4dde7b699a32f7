package activity

import (
	"encoding/json"
	"time"

	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// Action is one of the closed activity vocabulary.
type Action string

const (
	ActionLogin            Action = "LOGIN"
	ActionLogout           Action = "LOGOUT"
	ActionRegisterProduct  Action = "REGISTER_PRODUCT"
	ActionUpdateProduct    Action = "UPDATE_PRODUCT"
	ActionDeleteProduct    Action = "DELETE_PRODUCT"
	ActionBulkUpdateStatus Action = "BULK_UPDATE_STATUS"
	ActionCreateTemplate   Action = "CREATE_TEMPLATE"
	ActionUpdateTemplate   Action = "UPDATE_TEMPLATE"
	ActionDeleteTemplate   Action = "DELETE_TEMPLATE"
	ActionGenerateQRCodes  Action = "GENERATE_QR_CODES"
	ActionScanQR           Action = "SCAN_QR"
	ActionCreateUser       Action = "CREATE_USER"
	ActionUpdateUser       Action = "UPDATE_USER"
	ActionDeleteUser       Action = "DELETE_USER"
	ActionUpdateProfile    Action = "UPDATE_PROFILE"
)

var actions = map[Action]struct{}{
	ActionLogin: {}, ActionLogout: {}, ActionRegisterProduct: {}, ActionUpdateProduct: {},
	ActionDeleteProduct: {}, ActionBulkUpdateStatus: {}, ActionCreateTemplate: {},
	ActionUpdateTemplate: {}, ActionDeleteTemplate: {}, ActionGenerateQRCodes: {},
	ActionScanQR: {}, ActionCreateUser: {}, ActionUpdateUser: {}, ActionDeleteUser: {},
	ActionUpdateProfile: {},
}

// Valid reports whether a belongs to the vocabulary.
func (a Action) Valid() bool {
	_, ok := actions[a]
	return ok
}

// Tables referenced by entries.
const (
	TableProducts  = "products"
	TableQRCodes   = "qr_codes"
	TableTemplates = "product_templates"
	TableUsers     = "users"
)

// Entry is one audit record as submitted by a component.
type Entry struct {
	UserID    int64           `json:"user_id,omitempty"`
	Action    Action          `json:"action"`
	TableName string          `json:"table_name"`
	RecordID  string          `json:"record_id"`
	OldData   json.RawMessage `json:"old_data,omitempty"`
	NewData   json.RawMessage `json:"new_data,omitempty"`
	IPAddress string          `json:"ip_address,omitempty"`
	UserAgent string          `json:"user_agent,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Record is a stored entry as returned by the timeline.
type Record struct {
	ID        int64           `json:"id"`
	UserID    *int64          `json:"user_id"`
	Username  string          `json:"username,omitempty"`
	Action    Action          `json:"action"`
	TableName string          `json:"table_name"`
	RecordID  string          `json:"record_id"`
	OldData   json.RawMessage `json:"old_data,omitempty"`
	NewData   json.RawMessage `json:"new_data,omitempty"`
	IPAddress string          `json:"ip_address"`
	UserAgent string          `json:"user_agent"`
	CreatedAt time.Time       `json:"created_at"`
}

// Filter narrows the timeline.
type Filter struct {
	Action    Action
	UserID    int64
	TableName string
	From      time.Time
	To        time.Time
	Page      int
	PageSize  int
}

// Page is a slice of the timeline.
type Page struct {
	Rows       []Record          `json:"rows"`
	Pagination shared.Pagination `json:"pagination"`
}

// Snapshot marshals v for OldData/NewData. Values that cannot be encoded yield nil.
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
