package domain

import "fmt"

// ServiceType is the category of field work.
type ServiceType string

const (
	ServiceInstallation ServiceType = "installation"
	ServiceMaintenance  ServiceType = "maintenance"
	ServiceRepair       ServiceType = "repair"
)

var serviceLabels = map[ServiceType]string{
	ServiceInstallation: "Instalación",
	ServiceMaintenance:  "Mantenimiento",
	ServiceRepair:       "Reparación",
}

// ParseServiceType validates a service category.
func ParseServiceType(value string) (ServiceType, error) {
	if _, ok := serviceLabels[ServiceType(value)]; !ok {
		return "", fmt.Errorf("unknown service type %q", value)
	}
	return ServiceType(value), nil
}

// Label is the client-facing name of the service.
func (t ServiceType) Label() string {
	if label, ok := serviceLabels[t]; ok {
		return label
	}
	return string(t)
}
