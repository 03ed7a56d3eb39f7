package hcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/hetznercloud/hcloud-go/v2/hcloud/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/ocpool/internal/config"
	"github.com/imamik/ocpool/internal/provisioning"
	"github.com/imamik/ocpool/internal/templates"
	"github.com/imamik/ocpool/internal/util/labels"
	"github.com/imamik/ocpool/internal/util/retry"
)

// fakeAPI is an in-memory subset of the Hetzner Cloud API.
type fakeAPI struct {
	mu      sync.Mutex
	servers map[int64]*schema.Server
	nextID  int64

	// failCreateAfter rejects every server create after this many succeeded.
	failCreateAfter int
	creates         int
	status          string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{servers: map[int64]*schema.Server{}, failCreateAfter: -1, status: "running"}
}

func jsonResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func errorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	jsonResponse(w, statusCode, schema.ErrorResponse{Error: schema.Error{Code: code, Message: message}})
}

func matches(selector string, l map[string]string) bool {
	key, value, hasValue := strings.Cut(selector, "=")
	got, ok := l[key]
	if !hasValue {
		return ok
	}
	return ok && got == value
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /servers", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		selector := r.URL.Query().Get("label_selector")
		ids := make([]int64, 0, len(f.servers))
		for id := range f.servers {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		resp := schema.ServerListResponse{Servers: []schema.Server{}}
		for _, id := range ids {
			if s := f.servers[id]; matches(selector, s.Labels) {
				resp.Servers = append(resp.Servers, *s)
			}
		}
		jsonResponse(w, http.StatusOK, resp)
	})

	mux.HandleFunc("POST /servers", func(w http.ResponseWriter, r *http.Request) {
		var req schema.ServerCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorResponse(w, http.StatusBadRequest, "invalid_input", err.Error())
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failCreateAfter >= 0 && f.creates >= f.failCreateAfter {
			errorResponse(w, http.StatusPreconditionFailed, "resource_unavailable", "no capacity")
			return
		}
		f.creates++
		f.nextID++
		server := &schema.Server{
			ID:     f.nextID,
			Name:   req.Name,
			Status: f.status,
			PublicNet: schema.ServerPublicNet{
				IPv4: schema.ServerPublicNetIPv4{IP: fmt.Sprintf("203.0.113.%d", f.nextID)},
			},
			Labels: map[string]string{},
		}
		if req.Labels != nil {
			server.Labels = *req.Labels
		}
		f.servers[server.ID] = server
		jsonResponse(w, http.StatusCreated, schema.ServerCreateResponse{
			Server: *server,
			Action: schema.Action{ID: server.ID, Command: "create_server", Status: "running"},
		})
	})

	mux.HandleFunc("PUT /servers/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req schema.ServerUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorResponse(w, http.StatusBadRequest, "invalid_input", err.Error())
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		s, ok := f.server(r)
		if !ok {
			errorResponse(w, http.StatusNotFound, "not_found", "server not found")
			return
		}
		if req.Labels != nil {
			s.Labels = *req.Labels
		}
		jsonResponse(w, http.StatusOK, schema.ServerUpdateResponse{Server: *s})
	})

	mux.HandleFunc("DELETE /servers/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		s, ok := f.server(r)
		if !ok {
			errorResponse(w, http.StatusNotFound, "not_found", "server not found")
			return
		}
		delete(f.servers, s.ID)
		jsonResponse(w, http.StatusOK, schema.ServerDeleteResponse{
			Action: schema.Action{ID: s.ID, Command: "delete_server", Status: "running"},
		})
	})

	mux.HandleFunc("GET /server_types", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		resp := schema.ServerTypeListResponse{ServerTypes: []schema.ServerType{}}
		if name != "missing" {
			resp.ServerTypes = append(resp.ServerTypes, schema.ServerType{ID: 1, Name: name, Architecture: "x86"})
		}
		jsonResponse(w, http.StatusOK, resp)
	})

	mux.HandleFunc("GET /images", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		jsonResponse(w, http.StatusOK, schema.ImageListResponse{Images: []schema.Image{
			{ID: 10, Name: &name, Type: "system", Status: "available", Architecture: "x86"},
		}})
	})

	mux.HandleFunc("GET /locations", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, schema.LocationListResponse{Locations: []schema.Location{
			{ID: 1, Name: r.URL.Query().Get("name")},
		}})
	})

	return mux
}

func (f *fakeAPI) server(r *http.Request) (*schema.Server, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return nil, false
	}
	s, ok := f.servers[id]
	return s, ok
}

func (f *fakeAPI) setStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.servers {
		s.Status = status
	}
}

func newTestBackend(t *testing.T, api *fakeAPI) *Backend {
	t.Helper()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	client := hcloud.NewClient(hcloud.WithToken("test-token"), hcloud.WithEndpoint(server.URL))
	return NewBackend("test-token",
		WithHCloudClient(client),
		WithRateLimit(0, 0),
		WithTimeouts(config.TestTimeouts()),
		WithSleeper(retry.NoSleep),
	)
}

func renderBody(t *testing.T, name string, types ...provisioning.NodeType) string {
	t.Helper()
	names := make([]string, len(types))
	counts := map[provisioning.NodeType]int{}
	for i, typ := range types {
		names[i] = fmt.Sprintf("ocp-%s-%d", typ, counts[typ])
		counts[typ]++
	}
	spec, err := provisioning.NewStackSpec(name, names, types)
	require.NoError(t, err)
	data, err := templates.NewStackData(spec, "example.com", map[string]string{
		"master": "cx41", "infra": "cx31", "compute": "cx31",
	})
	require.NoError(t, err)
	data.Location = "fsn1"
	data.Image = "rhel-7"
	data.Labels = map[string]string{"team": "platform"}
	body, err := templates.RenderStack(data)
	require.NoError(t, err)
	return string(body)
}

func TestBackend_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := newFakeAPI()
	b := newTestBackend(t, api)

	body := renderBody(t, "demo", provisioning.NodeTypeMaster, provisioning.NodeTypeInfra, provisioning.NodeTypeCompute)
	require.NoError(t, b.CreateStack(ctx, "demo", body))

	stacks, err := b.ListStacks(ctx)
	require.NoError(t, err)
	require.Len(t, stacks, 1)
	assert.Equal(t, provisioning.StackSummary{ID: "demo", Name: "demo", Status: "CREATE_COMPLETE"}, stacks[0])

	outputs, err := b.GetStackOutputs(ctx, "demo")
	require.NoError(t, err)
	got := map[string]string{}
	for _, o := range outputs {
		got[o.Key] = o.Value
	}
	assert.Equal(t, "demo", got["ocp_deployment_pqdn"])
	assert.Equal(t, "ocp-master-0.demo.example.com", got["ocp-master-0_name"])
	assert.Equal(t, "master", got["ocp-master-0_instance_type"])
	assert.Equal(t, "203.0.113.1", got["ocp-master-0_public_ip"])
	assert.Equal(t, "infra", got["ocp-infra-0_instance_type"])
	assert.Len(t, outputs, 10)

	api.mu.Lock()
	first := api.servers[1]
	assert.Equal(t, "demo-ocp-master-0", first.Name)
	assert.Equal(t, "platform", first.Labels["team"])
	assert.Equal(t, "3", first.Labels[labels.KeyExpected])
	assert.Equal(t, labels.ManagedByOCPool, first.Labels[labels.KeyManagedBy])
	api.mu.Unlock()

	require.NoError(t, b.DeleteStack(ctx, "demo"))
	_, err = b.GetStackStatus(ctx, "demo")
	assert.ErrorIs(t, err, provisioning.ErrStackNotFound)
}

func TestBackend_CreateStackRejectsExisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newTestBackend(t, newFakeAPI())

	body := renderBody(t, "demo", provisioning.NodeTypeMaster, provisioning.NodeTypeCompute)
	require.NoError(t, b.CreateStack(ctx, "demo", body))
	err := b.CreateStack(ctx, "demo", body)
	assert.ErrorIs(t, err, provisioning.ErrStackAlreadyExists)
}

func TestBackend_PartialCreateIsFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := newFakeAPI()
	api.failCreateAfter = 1
	b := newTestBackend(t, api)

	body := renderBody(t, "demo", provisioning.NodeTypeMaster, provisioning.NodeTypeCompute)
	err := b.CreateStack(ctx, "demo", body)
	assert.ErrorContains(t, err, "ocp-compute-0")

	status, err := b.GetStackStatus(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "CREATE_FAILED", status)
}

func TestBackend_StatusInProgress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	api := newFakeAPI()
	api.status = "initializing"
	b := newTestBackend(t, api)

	require.NoError(t, b.CreateStack(ctx, "demo", renderBody(t, "demo", provisioning.NodeTypeMaster, provisioning.NodeTypeCompute)))
	status, err := b.GetStackStatus(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "CREATE_IN_PROGRESS", status)

	api.setStatus("running")
	status, err = b.GetStackStatus(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "CREATE_COMPLETE", status)
}

func TestBackend_InvalidBody(t *testing.T) {
	t.Parallel()
	b := newTestBackend(t, newFakeAPI())

	tests := []struct {
		name string
		body string
	}{
		{name: "not yaml", body: "servers: [unterminated"},
		{name: "no servers", body: "stack: demo\nservers: []\n"},
		{name: "other stack", body: "stack: lab\nservers:\n  - name: a\n    server_type: cx11\n    image: rhel\n"},
		{name: "unknown field", body: "stack: demo\nflavor: large\nservers:\n  - name: a\n    server_type: cx11\n    image: rhel\n"},
		{name: "missing image", body: "stack: demo\nservers:\n  - name: a\n    server_type: cx11\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, b.CreateStack(context.Background(), "demo", tt.body))
		})
	}
}

func TestBackend_UnknownServerType(t *testing.T) {
	t.Parallel()
	b := newTestBackend(t, newFakeAPI())

	body := "stack: demo\nservers:\n  - name: a\n    instance_type: master\n    server_type: missing\n    image: rhel\n"
	err := b.CreateStack(context.Background(), "demo", body)
	assert.ErrorContains(t, err, "server type not found")
}

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	server := func(status hcloud.ServerStatus, l map[string]string) *hcloud.Server {
		return &hcloud.Server{Status: status, Labels: l}
	}
	running := hcloud.ServerStatusRunning
	expect2 := map[string]string{labels.KeyExpected: "2"}

	tests := []struct {
		name    string
		servers []*hcloud.Server
		want    provisioning.StackStatus
	}{
		{name: "none", want: provisioning.StatusUnknown},
		{name: "all running", servers: []*hcloud.Server{server(running, expect2), server(running, expect2)}, want: provisioning.StatusCreateComplete},
		{name: "missing server", servers: []*hcloud.Server{server(running, expect2)}, want: provisioning.StatusCreateInProgress},
		{name: "starting", servers: []*hcloud.Server{server(running, expect2), server(hcloud.ServerStatusStarting, expect2)}, want: provisioning.StatusCreateInProgress},
		{name: "failed", servers: []*hcloud.Server{server(running, map[string]string{labels.KeyState: labels.StateFailed})}, want: provisioning.StatusCreateFailed},
		{name: "deleting wins", servers: []*hcloud.Server{
			server(running, map[string]string{labels.KeyState: labels.StateFailed}),
			server(running, map[string]string{labels.KeyState: labels.StateDeleting}),
		}, want: provisioning.StatusDeleteInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, deriveStatus(tt.servers))
		})
	}
}
