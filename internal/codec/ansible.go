package codec

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"topolab/internal/domain"

	"gopkg.in/yaml.v3"
)

// AnsibleCodec handles Ansible inventory import/export
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible-inventory"
}

// ansibleInventory represents the Ansible inventory structure
type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
	Hosts    map[string]ansibleHost     `yaml:"hosts,omitempty"`
	Vars     map[string]interface{}     `yaml:"vars,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]ansibleHost `yaml:"hosts,omitempty"`
	Vars  map[string]interface{} `yaml:"vars,omitempty"`
}

type ansibleHost struct {
	AnsibleHost string                 `yaml:"ansible_host,omitempty"`
	Vars        map[string]interface{} `yaml:",inline"`
}

type inventoryHost struct {
	id    string
	group string
	host  ansibleHost
}

// Parse imports components from an Ansible inventory. Hosts are laid out on
// a grid; when a router or gateway is present every other host is linked to
// it. Links the rule table refuses are reported when the document is loaded.
func (c *AnsibleCodec) Parse(r io.Reader) (*Result, error) {
	var inv ansibleInventory
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&inv); err != nil {
		return nil, fmt.Errorf("failed to parse Ansible inventory: %w", err)
	}

	// Maps carry no order, so sort hosts for a stable layout
	var hosts []inventoryHost
	seen := make(map[string]bool)
	groupNames := make([]string, 0, len(inv.All.Children))
	for name := range inv.All.Children {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)
	for _, name := range groupNames {
		for _, id := range sortedHostIDs(inv.All.Children[name].Hosts) {
			if !seen[id] {
				seen[id] = true
				hosts = append(hosts, inventoryHost{id, name, inv.All.Children[name].Hosts[id]})
			}
		}
	}
	for _, id := range sortedHostIDs(inv.All.Hosts) {
		if !seen[id] {
			seen[id] = true
			hosts = append(hosts, inventoryHost{id, "all", inv.All.Hosts[id]})
		}
	}

	result := newResult()
	var routerID string
	for i, h := range hosts {
		comp := domain.Component{
			ID:          h.id,
			Type:        c.inferComponentType(h.group, h.host.Vars),
			Position:    GridPosition(i),
			DisplayName: h.id,
		}
		if name, ok := h.host.Vars["display_name"].(string); ok && name != "" {
			comp.DisplayName = name
		}
		result.Document.AddComponent(comp)

		if routerID == "" && comp.Type == domain.ComponentTypeRouter {
			routerID = comp.ID
		}
	}

	// Infer connections - connect all hosts to router if found
	if routerID != "" {
		for _, comp := range result.Document.Components {
			if comp.ID != routerID {
				result.Document.AddConnection(domain.NewConnection(comp.ID, routerID, domain.ConnectionWired))
			}
		}
	}

	return result, nil
}

func sortedHostIDs(hosts map[string]ansibleHost) []string {
	ids := make([]string, 0, len(hosts))
	for id := range hosts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// inferComponentType infers the component type from host vars and group name
func (c *AnsibleCodec) inferComponentType(groupName string, vars map[string]interface{}) domain.ComponentType {
	// First check component_type/device_type (explicit)
	for _, key := range []string{"component_type", "device_type"} {
		tag, ok := vars[key].(string)
		if !ok {
			continue
		}
		if t, ok := domain.ParseComponentType(strings.ToLower(tag)); ok {
			return t
		}
		switch strings.ToLower(tag) {
		case "gateway":
			return domain.ComponentTypeRouter
		case "ap", "wifi":
			return domain.ComponentTypeAccessPoint
		case "controller":
			return domain.ComponentTypeServer
		}
	}

	// Check role property
	if role, ok := vars["role"].(string); ok {
		roleLower := strings.ToLower(role)
		switch {
		case strings.Contains(roleLower, "router") || strings.Contains(roleLower, "gateway"):
			return domain.ComponentTypeRouter
		case strings.Contains(roleLower, "switch"):
			return domain.ComponentTypeSwitch
		case strings.Contains(roleLower, "firewall"):
			return domain.ComponentTypeFirewall
		case strings.Contains(roleLower, "ingress") || strings.Contains(roleLower, "loadbalancer"):
			return domain.ComponentTypeLoadBalancer
		case strings.Contains(roleLower, "storage"):
			return domain.ComponentTypeNAS
		case strings.Contains(roleLower, "database"):
			return domain.ComponentTypeDatabase
		}
	}

	// Check group name
	groupLower := strings.ToLower(groupName)
	switch {
	case strings.Contains(groupLower, "router"), strings.Contains(groupLower, "network"):
		return domain.ComponentTypeRouter
	case strings.Contains(groupLower, "loadbalancer"):
		return domain.ComponentTypeLoadBalancer
	case strings.Contains(groupLower, "switch"):
		return domain.ComponentTypeSwitch
	case strings.Contains(groupLower, "firewall"):
		return domain.ComponentTypeFirewall
	case strings.Contains(groupLower, "database"), strings.Contains(groupLower, "db"):
		return domain.ComponentTypeDatabase
	case strings.Contains(groupLower, "workstation"), strings.Contains(groupLower, "desktop"):
		return domain.ComponentTypePC
	}

	// Default to server
	return domain.ComponentTypeServer
}

// Export writes the document as an Ansible inventory with one group per
// component category
func (c *AnsibleCodec) Export(doc *domain.Document, w io.Writer) error {
	inv := ansibleInventory{
		All: ansibleGroup{
			Children: make(map[string]ansibleGroupDef),
		},
	}

	neighbours := make(map[string][]string)
	for _, conn := range doc.Connections {
		neighbours[conn.FromID] = append(neighbours[conn.FromID], conn.ToID)
		neighbours[conn.ToID] = append(neighbours[conn.ToID], conn.FromID)
	}

	groups := make(map[string]map[string]ansibleHost)
	for _, comp := range doc.Components {
		if comp.Type.IsArea() || comp.Type == domain.ComponentTypeNote {
			continue
		}
		groupName := string(comp.Type.Category())
		if groups[groupName] == nil {
			groups[groupName] = make(map[string]ansibleHost)
		}

		host := ansibleHost{
			Vars: map[string]interface{}{
				"component_type": string(comp.Type),
				"display_name":   comp.DisplayName,
			},
		}
		if side, ok := comp.ClientSide(); ok {
			host.Vars["client_side"] = string(side)
		}
		if peers := neighbours[comp.ID]; len(peers) > 0 {
			sorted := append([]string(nil), peers...)
			sort.Strings(sorted)
			host.Vars["links"] = sorted
		}
		groups[groupName][comp.ID] = host
	}

	// Convert groups to Ansible format
	for groupName, hosts := range groups {
		inv.All.Children[groupName] = ansibleGroupDef{
			Hosts: hosts,
		}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}

	return nil
}
