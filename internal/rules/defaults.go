package rules

import "topolab/internal/domain"

const (
	reasonEndToEnd     = "end devices must connect through network infrastructure"
	reasonInternetEdge = "direct Internet access must pass through a router or firewall"
	reasonDatabaseEdge = "databases must not be exposed directly to the Internet"
	reasonArea         = "areas are containers, not network devices"
)

// compatibility lists, per type, the partners it may link to. Symmetry means
// each pair only has to appear once; duplicates are harmless.
var compatibility = map[domain.ComponentType][]domain.ComponentType{
	domain.ComponentTypeRouter: {
		domain.ComponentTypeRouter, domain.ComponentTypeSwitch, domain.ComponentTypeHub,
		domain.ComponentTypeFirewall, domain.ComponentTypeModem, domain.ComponentTypeServer,
		domain.ComponentTypeLoadBalancer, domain.ComponentTypeVPNGateway, domain.ComponentTypeProxy,
		domain.ComponentTypeIDS, domain.ComponentTypeInternet, domain.ComponentTypeISP,
		domain.ComponentTypeCloud, domain.ComponentTypeAccessPoint, domain.ComponentTypeWirelessRouter,
		domain.ComponentTypeNAS, domain.ComponentTypePC, domain.ComponentTypeLaptop,
	},
	domain.ComponentTypeSwitch: {
		domain.ComponentTypeSwitch, domain.ComponentTypeHub, domain.ComponentTypeFirewall,
		domain.ComponentTypeServer, domain.ComponentTypeDatabase, domain.ComponentTypeLoadBalancer,
		domain.ComponentTypeIDS, domain.ComponentTypeProxy, domain.ComponentTypeAccessPoint,
		domain.ComponentTypeWirelessRouter, domain.ComponentTypePrinter, domain.ComponentTypeNAS,
		domain.ComponentTypeVoIPPhone, domain.ComponentTypeSmartCamera, domain.ComponentTypePC,
		domain.ComponentTypeLaptop,
	},
	domain.ComponentTypeHub: {
		domain.ComponentTypePC, domain.ComponentTypeLaptop, domain.ComponentTypePrinter,
	},
	domain.ComponentTypeModem: {
		domain.ComponentTypeISP, domain.ComponentTypeFirewall, domain.ComponentTypeWirelessRouter,
	},
	domain.ComponentTypeServer: {
		domain.ComponentTypeFirewall, domain.ComponentTypeLoadBalancer, domain.ComponentTypeDatabase,
		domain.ComponentTypeProxy, domain.ComponentTypeCDN, domain.ComponentTypeNAS,
		domain.ComponentTypePC, domain.ComponentTypeLaptop,
	},
	domain.ComponentTypeLoadBalancer: {
		domain.ComponentTypeFirewall,
	},
	domain.ComponentTypeFirewall: {
		domain.ComponentTypeFirewall, domain.ComponentTypeInternet, domain.ComponentTypeISP,
		domain.ComponentTypeVPNGateway, domain.ComponentTypeProxy, domain.ComponentTypeIDS,
	},
	domain.ComponentTypeVPNGateway: {
		domain.ComponentTypeCloud, domain.ComponentTypeInternet, domain.ComponentTypeLaptop,
	},
	domain.ComponentTypeInternet: {
		domain.ComponentTypeISP, domain.ComponentTypeCloud, domain.ComponentTypeCDN,
	},
	domain.ComponentTypeISP: {
		domain.ComponentTypeCellularTower, domain.ComponentTypeCloud,
	},
	domain.ComponentTypeAccessPoint: {
		domain.ComponentTypeLaptop, domain.ComponentTypeSmartphone, domain.ComponentTypeTablet,
		domain.ComponentTypeIoTSensor, domain.ComponentTypeSmartCamera, domain.ComponentTypeSmartThermostat,
		domain.ComponentTypePrinter,
	},
	domain.ComponentTypeWirelessRouter: {
		domain.ComponentTypePC, domain.ComponentTypeLaptop, domain.ComponentTypeSmartphone,
		domain.ComponentTypeTablet, domain.ComponentTypeIoTSensor, domain.ComponentTypeSmartCamera,
		domain.ComponentTypeSmartThermostat, domain.ComponentTypePrinter,
	},
	domain.ComponentTypeCellularTower: {
		domain.ComponentTypeSmartphone, domain.ComponentTypeTablet,
	},
	domain.ComponentTypeUser: {
		domain.ComponentTypePC, domain.ComponentTypeLaptop, domain.ComponentTypeSmartphone,
		domain.ComponentTypeTablet,
	},
}

// DefaultRules returns the built-in compatibility matrix. Deny rules come
// first so the allow list can override the blanket client-to-client denial
// for the user-operates-device pairs.
func DefaultRules() []Rule {
	var rules []Rule

	var clients, areas []domain.ComponentType
	for _, t := range domain.AllComponentTypes() {
		switch t.Category() {
		case domain.CategoryClient:
			clients = append(clients, t)
		case domain.CategoryArea:
			areas = append(areas, t)
		}
	}

	for i, a := range clients {
		for _, b := range clients[i:] {
			rules = append(rules, Rule{A: a, B: b, Reason: reasonEndToEnd})
		}
		rules = append(rules, Rule{A: a, B: domain.ComponentTypeInternet, Reason: reasonInternetEdge})
	}
	for i, a := range areas {
		for _, b := range areas[i:] {
			rules = append(rules, Rule{A: a, B: b, Reason: reasonArea})
		}
	}
	rules = append(rules, Rule{A: domain.ComponentTypeDatabase, B: domain.ComponentTypeInternet, Reason: reasonDatabaseEdge})

	// Iterate in catalog order so the table is deterministic
	for _, t := range domain.AllComponentTypes() {
		for _, partner := range compatibility[t] {
			rules = append(rules, Rule{A: t, B: partner, Allowed: true})
		}
	}
	return rules
}

// Default returns an engine loaded with DefaultRules
func Default() *Engine {
	return NewEngine(DefaultRules()...)
}
