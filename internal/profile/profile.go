// Package profile defines mobility-device profiles and the per-device
// obstacle relevance tables used by scoring and alerting.
package profile

import (
	"errors"
	"fmt"

	"github.com/stepfree/stepfree/internal/obstacle"
)

// ErrUnknownDevice indicates an unrecognized mobility device type.
var ErrUnknownDevice = errors.New("unknown mobility device type")

// DeviceType identifies the traveller's mobility device.
type DeviceType string

const (
	DeviceWheelchair DeviceType = "wheelchair"
	DeviceWalker     DeviceType = "walker"
	DeviceCrutches   DeviceType = "crutches"
	DeviceCane       DeviceType = "cane"
	DeviceNone       DeviceType = "none"
)

// AllDeviceTypes lists every supported device type.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{DeviceWheelchair, DeviceWalker, DeviceCrutches, DeviceCane, DeviceNone}
}

// Valid reports whether d is a known device type.
func (d DeviceType) Valid() bool {
	switch d {
	case DeviceWheelchair, DeviceWalker, DeviceCrutches, DeviceCane, DeviceNone:
		return true
	}
	return false
}

// Profile holds a traveller's device type, thresholds and preferences.
// Profiles are always complete: construct them with Default and
// override fields, never with zero values.
type Profile struct {
	Device DeviceType

	// MaxRampSlope is the steepest traversable ramp gradient in percent.
	MaxRampSlope float64
	// MinPathWidth is the narrowest traversable passage in meters.
	MinPathWidth float64
	// MaxWalkingDistance is the longest acceptable route in meters.
	MaxWalkingDistance float64

	AvoidStairs bool
	AvoidCrowds bool
	PreferShade bool
}

// Default returns the complete default profile for a device type.
func Default(device DeviceType) (Profile, error) {
	switch device {
	case DeviceWheelchair:
		return Profile{
			Device:             DeviceWheelchair,
			MaxRampSlope:       5.0,
			MinPathWidth:       0.9,
			MaxWalkingDistance: 2000,
			AvoidStairs:        true,
			AvoidCrowds:        true,
		}, nil
	case DeviceWalker:
		return Profile{
			Device:             DeviceWalker,
			MaxRampSlope:       8.0,
			MinPathWidth:       0.75,
			MaxWalkingDistance: 1500,
			AvoidStairs:        true,
			AvoidCrowds:        true,
		}, nil
	case DeviceCrutches:
		return Profile{
			Device:             DeviceCrutches,
			MaxRampSlope:       10.0,
			MinPathWidth:       0.7,
			MaxWalkingDistance: 1200,
			AvoidStairs:        false,
			AvoidCrowds:        true,
		}, nil
	case DeviceCane:
		return Profile{
			Device:             DeviceCane,
			MaxRampSlope:       12.0,
			MinPathWidth:       0.6,
			MaxWalkingDistance: 2500,
		}, nil
	case DeviceNone:
		return Profile{
			Device:             DeviceNone,
			MaxRampSlope:       15.0,
			MinPathWidth:       0.5,
			MaxWalkingDistance: 5000,
		}, nil
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownDevice, device)
}

// MustDefault is Default for statically known device types.
func MustDefault(device DeviceType) Profile {
	p, err := Default(device)
	if err != nil {
		panic(err)
	}
	return p
}

// RelevantObstacle reports whether an obstacle type matters for the
// profile's device. The switch over obstacle types is exhaustive per
// device so a new obstacle type fails compilation here until every
// table is decided.
func (p Profile) RelevantObstacle(t obstacle.Type) bool {
	switch p.Device {
	case DeviceWheelchair:
		return wheelchairRelevant(t)
	case DeviceWalker:
		return walkerRelevant(t)
	case DeviceCrutches:
		return crutchesRelevant(t)
	case DeviceCane:
		return caneRelevant(t)
	case DeviceNone:
		return pedestrianRelevant(t)
	}
	// Unknown device: treat everything as relevant rather than silently
	// dropping warnings.
	return true
}

func wheelchairRelevant(t obstacle.Type) bool {
	switch t {
	case obstacle.TypeStairsNoRamp, obstacle.TypeNarrowPassage,
		obstacle.TypeBrokenPavement, obstacle.TypeFlooding,
		obstacle.TypeVehicleParked, obstacle.TypeVendorBlocking,
		obstacle.TypeConstruction, obstacle.TypeNoSidewalk,
		obstacle.TypeSteepSlope:
		return true
	case obstacle.TypeUtilityPole, obstacle.TypeTreeRoots, obstacle.TypeOther:
		return false
	}
	return true
}

func walkerRelevant(t obstacle.Type) bool {
	switch t {
	case obstacle.TypeStairsNoRamp, obstacle.TypeNarrowPassage,
		obstacle.TypeBrokenPavement, obstacle.TypeFlooding,
		obstacle.TypeConstruction, obstacle.TypeNoSidewalk,
		obstacle.TypeSteepSlope, obstacle.TypeTreeRoots:
		return true
	case obstacle.TypeVendorBlocking, obstacle.TypeVehicleParked,
		obstacle.TypeUtilityPole, obstacle.TypeOther:
		return false
	}
	return true
}

func crutchesRelevant(t obstacle.Type) bool {
	switch t {
	case obstacle.TypeBrokenPavement, obstacle.TypeFlooding,
		obstacle.TypeSteepSlope, obstacle.TypeTreeRoots,
		obstacle.TypeNoSidewalk:
		return true
	case obstacle.TypeVendorBlocking, obstacle.TypeVehicleParked,
		obstacle.TypeStairsNoRamp, obstacle.TypeNarrowPassage,
		obstacle.TypeConstruction, obstacle.TypeUtilityPole,
		obstacle.TypeOther:
		return false
	}
	return true
}

func caneRelevant(t obstacle.Type) bool {
	switch t {
	case obstacle.TypeBrokenPavement, obstacle.TypeFlooding:
		return true
	case obstacle.TypeVendorBlocking, obstacle.TypeVehicleParked,
		obstacle.TypeStairsNoRamp, obstacle.TypeNarrowPassage,
		obstacle.TypeConstruction, obstacle.TypeUtilityPole,
		obstacle.TypeTreeRoots, obstacle.TypeNoSidewalk,
		obstacle.TypeSteepSlope, obstacle.TypeOther:
		return false
	}
	return true
}

func pedestrianRelevant(t obstacle.Type) bool {
	switch t {
	case obstacle.TypeFlooding, obstacle.TypeConstruction,
		obstacle.TypeNoSidewalk:
		return true
	case obstacle.TypeVendorBlocking, obstacle.TypeVehicleParked,
		obstacle.TypeStairsNoRamp, obstacle.TypeNarrowPassage,
		obstacle.TypeBrokenPavement, obstacle.TypeUtilityPole,
		obstacle.TypeTreeRoots, obstacle.TypeSteepSlope,
		obstacle.TypeOther:
		return false
	}
	return true
}

// RelevantObstacles filters obstacles down to those relevant for the
// profile.
func (p Profile) RelevantObstacles(obstacles []*obstacle.Obstacle) []*obstacle.Obstacle {
	var relevant []*obstacle.Obstacle
	for _, o := range obstacles {
		if p.RelevantObstacle(o.Type) {
			relevant = append(relevant, o)
		}
	}
	return relevant
}

// HardBlocker reports whether an obstacle completely blocks passage
// for this profile regardless of severity grading.
func (p Profile) HardBlocker(o *obstacle.Obstacle) bool {
	if !p.RelevantObstacle(o.Type) {
		return false
	}
	if o.Severity == obstacle.SeverityBlocking {
		return true
	}
	// Stairs are a hard stop for wheeled devices even below blocking.
	if p.AvoidStairs && o.Type == obstacle.TypeStairsNoRamp {
		return true
	}
	return false
}
