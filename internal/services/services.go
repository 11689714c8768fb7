// Package services wires every supported integration into a registry.
package services

import (
	"github.com/micro-ha/korea-connect/internal/registry"
	"github.com/micro-ha/korea-connect/internal/services/arisu"
	"github.com/micro-ha/korea-connect/internal/services/gasapp"
	"github.com/micro-ha/korea-connect/internal/services/goodsflow"
	"github.com/micro-ha/korea-connect/internal/services/kakaomap"
	"github.com/micro-ha/korea-connect/internal/services/kepco"
	"github.com/micro-ha/korea-connect/internal/services/safetyalert"
)

// RegisterAll adds every service descriptor to the registry.
func RegisterAll(reg *registry.Registry) error {
	descriptors := []registry.Descriptor{
		kepco.Descriptor(),
		gasapp.Descriptor(),
		goodsflow.Descriptor(),
		arisu.Descriptor(),
		kakaomap.Descriptor(),
		safetyalert.Descriptor(),
	}
	for _, d := range descriptors {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}
