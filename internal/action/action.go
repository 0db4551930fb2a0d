package action

import (
	"net/http"

	"edge_gate/internal/dataType"
)

type Action int

const (
	Undecided   Action = iota // 0：Undecided
	PassThrough               // 1：forward the request untouched
	Redirect                  // 2：301 to the front-end domain
	Deny                      // 3：403 with a fixed body
	RewriteURI                // 4：serve the fallback page instead
	ServerError               // 5：malformed input
)

func (a Action) String() string {
	switch a {
	case PassThrough:
		return "pass"
	case Redirect:
		return "redirect"
	case Deny:
		return "deny"
	case RewriteURI:
		return "rewrite"
	case ServerError:
		return "error"
	default:
		return "undecided"
	}
}

type State int

const (
	Continue State = iota
	Done
)

const DenyBody = "Access Denied"

// Decision saves the result of the decision
type Decision struct {
	State       State
	result      Action
	StatusCode  int
	Location    string
	ContentType string
	Body        []byte
	// Request is the request to forward for PassThrough and RewriteURI
	Request *dataType.EdgeRequest
}

func NewDecision() *Decision {
	return &Decision{State: Continue, result: Undecided}
}

func (d *Decision) Get() Action {
	return d.result
}

func (d *Decision) Set(state State) {
	d.State = state
}

func (d *Decision) SetPassThrough(req *dataType.EdgeRequest) {
	d.result = PassThrough
	d.StatusCode = 0
	d.Request = req
	d.State = Done
}

func (d *Decision) SetRedirect(location string) {
	d.result = Redirect
	d.StatusCode = http.StatusMovedPermanently
	d.Location = location
	d.State = Done
}

func (d *Decision) SetDeny(body string) {
	d.result = Deny
	d.StatusCode = http.StatusForbidden
	d.ContentType = "text/html"
	d.Body = []byte(body)
	d.State = Done
}

// SetRewrite forwards req after its URI has been replaced by fallbackURI and its query dropped
func (d *Decision) SetRewrite(req *dataType.EdgeRequest, fallbackURI string) {
	rewritten := req.Clone()
	rewritten.Uri = fallbackURI
	rewritten.Query = nil
	d.result = RewriteURI
	d.StatusCode = 0
	d.Request = rewritten
	d.State = Done
}

func (d *Decision) SetServerError() {
	d.result = ServerError
	d.StatusCode = http.StatusInternalServerError
	d.ContentType = "text/plain; charset=utf-8"
	d.Body = []byte("500 - Internal Server Error")
	d.State = Done
}
