package dataType

const EdgeGateVersion = "1.0.0"

// QueryParam is one decoded key/value pair of the request query string
type QueryParam struct {
	Key   string
	Value string
}

// EdgeRequest is the typed view of an inbound request the router decides on
type EdgeRequest struct {
	Host          string
	ForwardedFor  string
	ViewerAddress string
	Uri           string
	Query         []QueryParam
	UserAgent     string
	RequestID     string
}

// Clone returns a copy that does not share the query slice
func (r *EdgeRequest) Clone() *EdgeRequest {
	c := *r
	if r.Query != nil {
		c.Query = make([]QueryParam, len(r.Query))
		copy(c.Query, r.Query)
	}
	return &c
}

// UserRequest is what the checks and the logger see: the inbound request
// plus the client address resolved for it
type UserRequest struct {
	RemoteIP  string
	Host      string
	Uri       string
	UserAgent string
	RequestID string
	Request   *EdgeRequest
}

func NewUserRequest(req *EdgeRequest, remoteIP string) UserRequest {
	u := UserRequest{RemoteIP: remoteIP, Request: req}
	if req != nil {
		u.Host = req.Host
		u.Uri = req.Uri
		u.UserAgent = req.UserAgent
		u.RequestID = req.RequestID
	}
	return u
}

// WhitelistMode selects what happens to a client that is not whitelisted
type WhitelistMode string

const (
	ModeDisabled WhitelistMode = "disabled"
	ModeDeny     WhitelistMode = "deny"
	ModeRewrite  WhitelistMode = "rewrite"
)

// EmptyPolicy decides membership when no whitelist entry is configured
type EmptyPolicy string

const (
	EmptyAllowAll EmptyPolicy = "allow_all"
	EmptyDenyAll  EmptyPolicy = "deny_all"
)

type SharedMemory struct {
	DenyCounter *Counter
}
