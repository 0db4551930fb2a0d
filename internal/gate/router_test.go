package gate

import (
	"io"
	"os"
	"testing"

	"edge_gate/internal/action"
	"edge_gate/internal/config"
	"edge_gate/internal/dataType"
	"edge_gate/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	utils.SetDefault(utils.NewWriterManager(io.Discard))
	os.Exit(m.Run())
}

type recorder struct {
	seen []action.Action
}

func (r *recorder) Observe(d *action.Decision, _ dataType.UserRequest) {
	r.seen = append(r.seen, d.Get())
}

func newRouter(mode dataType.WhitelistMode, entries ...string) (*Router, *recorder) {
	rs := &config.RuleSet{
		RootDomain:     "example.com",
		FrontendDomain: "www.example.com",
		Mode:           mode,
		FallbackPage:   "/coming-soon.html",
		Whitelist:      dataType.NewWhitelist(entries, dataType.EmptyAllowAll),
	}
	rec := &recorder{}
	mem := &dataType.SharedMemory{DenyCounter: dataType.NewCounter(4, 60)}
	return NewRouter(rs, mem, rec), rec
}

func TestRoute_NilRequest(t *testing.T) {
	rt, rec := newRouter(dataType.ModeDeny)
	d := rt.Route(nil)
	assert.Equal(t, action.ServerError, d.Get())
	assert.Equal(t, 500, d.StatusCode)
	assert.Equal(t, []action.Action{action.ServerError}, rec.seen)
}

func TestRoute_PassThroughIsSameObject(t *testing.T) {
	rt, _ := newRouter(dataType.ModeDisabled)
	req := &dataType.EdgeRequest{Host: "www.example.com", Uri: "/shop", Query: []dataType.QueryParam{{Key: "a", Value: "1"}}}
	snapshot := *req

	d := rt.Route(req)
	require.Equal(t, action.PassThrough, d.Get())
	assert.Same(t, req, d.Request)
	assert.Equal(t, snapshot, *req)
}

func TestRoute_Redirect(t *testing.T) {
	rt, _ := newRouter(dataType.ModeDisabled)
	d := rt.Route(&dataType.EdgeRequest{
		Host:  "example.com",
		Uri:   "/shop",
		Query: []dataType.QueryParam{{Key: "a", Value: "1 2"}},
	})
	require.Equal(t, action.Redirect, d.Get())
	assert.Equal(t, 301, d.StatusCode)
	assert.Equal(t, "https://www.example.com/shop?a=1%202", d.Location)
}

func TestRoute_GateRunsBeforeRedirect(t *testing.T) {
	rt, _ := newRouter(dataType.ModeDeny, "10.0.0.0/8")

	denied := rt.Route(&dataType.EdgeRequest{Host: "example.com", Uri: "/", ViewerAddress: "192.0.2.10"})
	assert.Equal(t, action.Deny, denied.Get())

	allowed := rt.Route(&dataType.EdgeRequest{Host: "example.com", Uri: "/", ViewerAddress: "10.1.2.3"})
	assert.Equal(t, action.Redirect, allowed.Get())
}

func TestRoute_RewriteProfile(t *testing.T) {
	rt, _ := newRouter(dataType.ModeRewrite, "112.222.28.115/32")
	req := &dataType.EdgeRequest{
		Host:         "www.example.com",
		Uri:          "/products",
		Query:        []dataType.QueryParam{{Key: "page", Value: "2"}},
		ForwardedFor: "112.222.28.116, 10.0.0.1",
	}
	d := rt.Route(req)
	require.Equal(t, action.RewriteURI, d.Get())
	assert.Equal(t, "/coming-soon.html", d.Request.Uri)
	assert.Empty(t, d.Request.Query)
	assert.Equal(t, "www.example.com", d.Request.Host)
}

func TestRoute_ForwardedForTakesPrecedence(t *testing.T) {
	rt, _ := newRouter(dataType.ModeDeny, "112.222.28.115/32")
	d := rt.Route(&dataType.EdgeRequest{
		Host:          "www.example.com",
		ForwardedFor:  "112.222.28.115",
		ViewerAddress: "192.0.2.1",
	})
	assert.Equal(t, action.PassThrough, d.Get())
}
