package core

// Reference data used to seed the embedded backends.
var (
	DefaultNetworks = []string{"BSNL", "P2P", "ILL", "AWS", "Switches", "F5"}

	DefaultNetworkVendors = map[string][]string{
		"BSNL":     {"BSNL Vendor"},
		"P2P":      {"RAILTEL CORPORATION OF INDIA LTD", "POWER GRID CORPORATION OF INDIA LTD"},
		"ILL":      {"RELIANCE JIO INFOCOMM LTD", "ALSTONIA CONSULTING LLP"},
		"AWS":      {"TATA COMMUNICATIONS LTD", "AMAZON WEB SERVICES INDIA PVT LTD"},
		"Switches": {"SWITCHES VENDOR"},
		"F5":       {"ALSTONIA CONSULTING LLP"},
	}

	DefaultNetworkQuarters = map[string][]string{
		"BSNL":     {"Q1-FY2024", "Q2-FY2024", "Q3-FY2024", "Q4-FY2024", "Q1-FY2025", "Q2-FY2025"},
		"P2P":      {"Q1-2024", "Q2-2024", "Q3-2024", "Q4-2024", "Q1-2025", "Q2-2025"},
		"ILL":      {"Q1-2024", "Q2-2024", "Q3-2024", "Q4-2024", "Q1-2025", "Q2-2025"},
		"AWS":      {"Q1-2024", "Q2-2024", "Q3-2024", "Q4-2024", "Q1-2025", "Q2-2025"},
		"Switches": {"Q1-2024", "Q2-2024", "Q3-2024", "Q4-2024", "Q1-2025", "Q2-2025"},
		"F5":       {"Q1-2024", "Q2-2024", "Q3-2024", "Q4-2024", "Q1-2025", "Q2-2025"},
	}

	DefaultCommitItems = []string{"C_COMMEXP", "C_R&MEQPC"}

	DefaultCostCenters = []string{"M75010-SRO", "M78010-TNSO"}

	DefaultLocations = []string{
		"Sankari Depot (Sankari TOP)", "Arakkonam AFS", "Trichy DO", "Trichy TOP", "Trichy BP",
		"Salem DO", "Mannargudi BP", "Tuticorin Marketing Terminal", "Irugur Marketing Terminal",
		"Coimbatore AFS", "Coimbatore DO", "Sulur AFS", "Coimbatore BP (Pollachi BP)", "Salem BP",
		"Pondicherry BP", "Erode BP", "Coimbatore Packed Bitumen Depot", "Trichy AFS",
		"Mayiladuthurai BP", "Southern RO and TamilNadu SO", "Chennai (CPCL) Refinery Coord. Office",
		"Chennai DO", "Chennai AFS", "Tambaram AFS", "Tuticorin AFS", "Ramnad AFS",
		"Ennore OMC Hospitality (HPCL)", "Tondiarpet TOP", "Chengalpet BP",
		"Chennai Indian Oil Tanking Limited", "Chennai (Tondiarpet) LBP",
		"Chennai (FST) Marketing Terminal", "Madurai TOP", "Madurai BP",
		"Korukkupet Marketing Terminal", "Madurai AFS", "Ilayangudi BP",
		"Chennai (LMT/CIP) Lube Marketing Terminal",
		"ETTPL Ennore Tank Marketing Terminals Private Limited", "Madurai DO", "RIL Ennore",
		"Tirunelveli BP", "Asaanr TOP", "Ennore BP LPG", "Erode CFA", "IPPL Ennore",
		"Hosour ASF", "Coimbatore LMW-COLD",
	}
)

// DefaultConfiguration builds the reference configuration from the defaults.
func DefaultConfiguration() Configuration {
	cfg := Configuration{
		Networks:      append([]string(nil), DefaultNetworks...),
		NetworkConfig: make(map[string]NetworkSettings, len(DefaultNetworks)),
	}
	for _, network := range DefaultNetworks {
		vendors := append([]string(nil), DefaultNetworkVendors[network]...)
		var entries []QuarterEntry
		for _, q := range DefaultNetworkQuarters[network] {
			entries = append(entries, LegacyQuarter(q))
			cfg.Quarters = appendUnique(cfg.Quarters, q)
		}
		cfg.NetworkConfig[network] = NetworkSettings{Vendors: vendors, Quarters: entries}
		cfg.Vendors = appendUnique(cfg.Vendors, vendors...)
	}
	return cfg
}
