package domain

// ComponentType represents the kind of network device placed on the canvas
type ComponentType string

const (
	// Client devices
	ComponentTypePC         ComponentType = "pc"
	ComponentTypeLaptop     ComponentType = "laptop"
	ComponentTypeSmartphone ComponentType = "smartphone"
	ComponentTypeTablet     ComponentType = "tablet"
	ComponentTypeUser       ComponentType = "user"

	// Core infrastructure
	ComponentTypeRouter       ComponentType = "router"
	ComponentTypeSwitch       ComponentType = "switch"
	ComponentTypeHub          ComponentType = "hub"
	ComponentTypeModem        ComponentType = "modem"
	ComponentTypeServer       ComponentType = "server"
	ComponentTypeDatabase     ComponentType = "database"
	ComponentTypeLoadBalancer ComponentType = "load_balancer"

	// Security appliances
	ComponentTypeFirewall   ComponentType = "firewall"
	ComponentTypeIDS        ComponentType = "ids"
	ComponentTypeVPNGateway ComponentType = "vpn_gateway"
	ComponentTypeProxy      ComponentType = "proxy"

	// Cloud and edge
	ComponentTypeInternet ComponentType = "internet"
	ComponentTypeISP      ComponentType = "isp"
	ComponentTypeCloud    ComponentType = "cloud"
	ComponentTypeCDN      ComponentType = "cdn"

	// IoT
	ComponentTypeIoTSensor       ComponentType = "iot_sensor"
	ComponentTypeSmartCamera     ComponentType = "smart_camera"
	ComponentTypeSmartThermostat ComponentType = "smart_thermostat"

	// Specialized devices
	ComponentTypePrinter   ComponentType = "printer"
	ComponentTypeNAS       ComponentType = "nas"
	ComponentTypeVoIPPhone ComponentType = "voip_phone"

	// Wireless
	ComponentTypeAccessPoint    ComponentType = "access_point"
	ComponentTypeWirelessRouter ComponentType = "wireless_router"
	ComponentTypeCellularTower  ComponentType = "cellular_tower"

	// Areas are visual containers, not network devices
	ComponentTypeAreaZone     ComponentType = "area_zone"
	ComponentTypeAreaBuilding ComponentType = "area_building"
	ComponentTypeAreaRoom     ComponentType = "area_room"

	ComponentTypeNote ComponentType = "note"
)

// Category groups component types for editor palettes and capability checks
type Category string

const (
	CategoryClient         Category = "client"
	CategoryInfrastructure Category = "infrastructure"
	CategorySecurity       Category = "security"
	CategoryCloudEdge      Category = "cloud_edge"
	CategoryIoT            Category = "iot"
	CategorySpecialized    Category = "specialized"
	CategoryWireless       Category = "wireless"
	CategoryArea           Category = "area"
	CategoryOther          Category = "other"
)

// TypeInfo is the static catalog entry for a component type
type TypeInfo struct {
	Type        ComponentType `json:"type"`
	DisplayName string        `json:"display_name"`
	Category    Category      `json:"category"`
}

// catalog is ordered; AllComponentTypes and rule partner listings follow it.
var catalog = []TypeInfo{
	{ComponentTypePC, "PC", CategoryClient},
	{ComponentTypeLaptop, "Laptop", CategoryClient},
	{ComponentTypeSmartphone, "Smartphone", CategoryClient},
	{ComponentTypeTablet, "Tablet", CategoryClient},
	{ComponentTypeUser, "User", CategoryClient},

	{ComponentTypeRouter, "Router", CategoryInfrastructure},
	{ComponentTypeSwitch, "Switch", CategoryInfrastructure},
	{ComponentTypeHub, "Hub", CategoryInfrastructure},
	{ComponentTypeModem, "Modem", CategoryInfrastructure},
	{ComponentTypeServer, "Server", CategoryInfrastructure},
	{ComponentTypeDatabase, "Database", CategoryInfrastructure},
	{ComponentTypeLoadBalancer, "Load Balancer", CategoryInfrastructure},

	{ComponentTypeFirewall, "Firewall", CategorySecurity},
	{ComponentTypeIDS, "Intrusion Detection", CategorySecurity},
	{ComponentTypeVPNGateway, "VPN Gateway", CategorySecurity},
	{ComponentTypeProxy, "Proxy", CategorySecurity},

	{ComponentTypeInternet, "Internet", CategoryCloudEdge},
	{ComponentTypeISP, "ISP", CategoryCloudEdge},
	{ComponentTypeCloud, "Cloud", CategoryCloudEdge},
	{ComponentTypeCDN, "CDN", CategoryCloudEdge},

	{ComponentTypeIoTSensor, "IoT Sensor", CategoryIoT},
	{ComponentTypeSmartCamera, "Smart Camera", CategoryIoT},
	{ComponentTypeSmartThermostat, "Smart Thermostat", CategoryIoT},

	{ComponentTypePrinter, "Printer", CategorySpecialized},
	{ComponentTypeNAS, "NAS", CategorySpecialized},
	{ComponentTypeVoIPPhone, "VoIP Phone", CategorySpecialized},

	{ComponentTypeAccessPoint, "Access Point", CategoryWireless},
	{ComponentTypeWirelessRouter, "Wireless Router", CategoryWireless},
	{ComponentTypeCellularTower, "Cellular Tower", CategoryWireless},

	{ComponentTypeAreaZone, "Zone", CategoryArea},
	{ComponentTypeAreaBuilding, "Building", CategoryArea},
	{ComponentTypeAreaRoom, "Room", CategoryArea},

	{ComponentTypeNote, "Note", CategoryOther},
}

var catalogIndex = func() map[ComponentType]int {
	idx := make(map[ComponentType]int, len(catalog))
	for i, info := range catalog {
		idx[info.Type] = i
	}
	return idx
}()

// customColorTypes is the allow-list of types that accept a user-chosen color
var customColorTypes = map[ComponentType]bool{
	ComponentTypeUser:         true,
	ComponentTypeAreaZone:     true,
	ComponentTypeAreaBuilding: true,
	ComponentTypeAreaRoom:     true,
	ComponentTypeNote:         true,
}

// ParseComponentType resolves a drop payload or persisted tag to a type.
// Unknown tags return false.
func ParseComponentType(tag string) (ComponentType, bool) {
	t := ComponentType(tag)
	if _, ok := catalogIndex[t]; !ok {
		return "", false
	}
	return t, true
}

// AllComponentTypes returns every catalog type in palette order
func AllComponentTypes() []ComponentType {
	types := make([]ComponentType, len(catalog))
	for i, info := range catalog {
		types[i] = info.Type
	}
	return types
}

// Catalog returns a copy of the full catalog
func Catalog() []TypeInfo {
	out := make([]TypeInfo, len(catalog))
	copy(out, catalog)
	return out
}

// Valid reports whether t is a catalog type
func (t ComponentType) Valid() bool {
	_, ok := catalogIndex[t]
	return ok
}

// Info returns the catalog entry for t
func (t ComponentType) Info() (TypeInfo, bool) {
	i, ok := catalogIndex[t]
	if !ok {
		return TypeInfo{}, false
	}
	return catalog[i], true
}

// Order returns the catalog position of t, or -1 for unknown types
func (t ComponentType) Order() int {
	i, ok := catalogIndex[t]
	if !ok {
		return -1
	}
	return i
}

// DisplayName returns the human readable name, or the raw tag for unknown types
func (t ComponentType) DisplayName() string {
	if info, ok := t.Info(); ok {
		return info.DisplayName
	}
	return string(t)
}

// Category returns the category of t; unknown types are CategoryOther
func (t ComponentType) Category() Category {
	if info, ok := t.Info(); ok {
		return info.Category
	}
	return CategoryOther
}

// CanBeClient reports whether t may occupy a client zone
func (t ComponentType) CanBeClient() bool {
	return t.Category() == CategoryClient
}

// SupportsCustomColor reports whether t accepts a user-chosen color
func (t ComponentType) SupportsCustomColor() bool {
	return customColorTypes[t]
}

// IsArea reports whether t is an area container
func (t ComponentType) IsArea() bool {
	return t.Category() == CategoryArea
}
