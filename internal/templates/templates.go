// Package templates renders the files ocpool hands to its collaborators:
// the stack body submitted to the backend, nsupdate batches and the
// ansible inventories of the two configuration phases.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/imamik/ocpool/internal/provisioning"
)

//go:embed files/*.tmpl
var filesFS embed.FS

// Template file names.
const (
	StackTemplate         = "stack.yaml.tmpl"
	CreateDomainsTemplate = "create_domains.tmpl"
	DeleteDomainsTemplate = "delete_domains.tmpl"
	PreInstallInventory   = "pre_install.ini.tmpl"
	InstallInventory      = "install.ini.tmpl"
)

var parsed = template.Must(
	template.New("ocpool").Funcs(sprig.TxtFuncMap()).ParseFS(filesFS, "files/*.tmpl"),
)

// StackServer is one server of the rendered stack.
type StackServer struct {
	Name         string
	InstanceType string
	ServerType   string
}

// StackData parameterizes the stack template.
type StackData struct {
	Name       string
	Deployment string
	Zone       string
	Location   string
	Image      string
	SSHKeys    []string
	Labels     map[string]string
	UserData   string
	Servers    []StackServer
}

// NewStackData builds the template data of spec with the server type
// configured for each node type.
func NewStackData(spec provisioning.StackSpec, zone string, serverTypes map[string]string) (StackData, error) {
	data := StackData{
		Name:       spec.Name,
		Deployment: spec.Name,
		Zone:       zone,
	}
	for _, inst := range spec.Instances {
		st := serverTypes[inst.Type.String()]
		if st == "" {
			return StackData{}, fmt.Errorf("no server type configured for %s nodes", inst.Type)
		}
		data.Servers = append(data.Servers, StackServer{
			Name:         inst.Name,
			InstanceType: inst.Type.String(),
			ServerType:   st,
		})
	}
	return data, nil
}

// DNSData parameterizes the nsupdate batches.
type DNSData struct {
	Server  string
	Zone    string
	TTL     int
	Records []provisioning.DNSRecord
}

// InventoryHost is one host line of the pre-install inventory.
type InventoryHost struct {
	FQDN string
	IP   string
	Type provisioning.NodeType
}

// InventoryData parameterizes both phase inventories.
type InventoryData struct {
	Cluster        string
	Hosts          []InventoryHost
	Deployer       string
	Masters        []string
	Infras         []string
	Computes       []string
	RemoteUser     string
	PrivateKeyFile string
}

// NewInventoryData groups hosts by node type. Hosts are sorted by FQDN and the
// deployer is the first master.
func NewInventoryData(cluster string, hosts []InventoryHost, remoteUser, privateKeyFile string) InventoryData {
	sorted := append([]InventoryHost(nil), hosts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FQDN < sorted[j].FQDN })

	data := InventoryData{
		Cluster:        cluster,
		Hosts:          sorted,
		RemoteUser:     remoteUser,
		PrivateKeyFile: privateKeyFile,
	}
	for _, h := range sorted {
		switch h.Type {
		case provisioning.NodeTypeMaster:
			data.Masters = append(data.Masters, h.FQDN)
		case provisioning.NodeTypeInfra:
			data.Infras = append(data.Infras, h.FQDN)
		case provisioning.NodeTypeCompute:
			data.Computes = append(data.Computes, h.FQDN)
		}
	}
	if len(data.Masters) > 0 {
		data.Deployer = data.Masters[0]
	}
	return data
}

// RenderStack renders the stack body.
func RenderStack(data StackData) ([]byte, error) {
	if len(data.Servers) == 0 {
		return nil, fmt.Errorf("stack %s has no servers", data.Name)
	}
	return Render(StackTemplate, data)
}

// RenderDNS renders the nsupdate batch for op.
func RenderDNS(op provisioning.DNSOperation, data DNSData) ([]byte, error) {
	name, err := DNSTemplate(op)
	if err != nil {
		return nil, err
	}
	return Render(name, data)
}

// DNSTemplate returns the template name of a DNS operation.
func DNSTemplate(op provisioning.DNSOperation) (string, error) {
	switch op {
	case provisioning.DNSRegister:
		return CreateDomainsTemplate, nil
	case provisioning.DNSUnregister:
		return DeleteDomainsTemplate, nil
	}
	return "", fmt.Errorf("unknown DNS operation %q", op)
}

// RenderInventory renders one of the phase inventories.
func RenderInventory(name string, data InventoryData) ([]byte, error) {
	if name == InstallInventory && data.Deployer == "" {
		return nil, fmt.Errorf("cluster %s has no master to drive the install", data.Cluster)
	}
	return Render(name, data)
}

// Render executes the named template.
func Render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := parsed.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
