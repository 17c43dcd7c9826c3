// Package impact extrapolates simulation-level improvements to city-scale
// economic and environmental estimates. The layer is deterministic
// arithmetic over a city profile; all inputs are documented constants or
// simulation-derived ratios.
package impact

import (
	"time"

	"github.com/astana-mobility/greenwave/internal/domain"
)

// CityProfile holds the city statistics the extrapolation runs against.
// Defaults describe Astana.
type CityProfile struct {
	Population            int64
	BusPassengersDaily    int64
	PrivateTransportShare float64

	TotalBuses       int64
	AvgBusSpeedKmh   float64
	AvgTripTimeMin   float64
	AvgPassengersCar float64

	// Peak-hour traffic through the arterial network, vehicles/hour.
	TrafficIntensity float64
	AvgLanes         float64

	ParkingCostPerHour   float64
	ParkingSearchTimeMin float64

	CarCO2GramsPerKm   float64
	BusCO2GramsPerKm   float64
	AvgBusKmPerDay     float64
	CarFuelLPer100Km   float64
	FuelPricePerLiter  float64
	AvgHighwaySpeedKmh float64

	// CongestionIndex is the baseline congestion score the reduction
	// applies to.
	CongestionIndex float64
}

// Assumptions are the adoption-scenario knobs, separate from the city
// profile because they come from the simulation results and a conservative
// uptake estimate rather than city statistics.
type Assumptions struct {
	// BusSpeedImprovement is the simulation-derived speed gain, e.g. 0.198.
	BusSpeedImprovement float64
	// PassengerGrowth is ridership growth attributed to faster buses.
	PassengerGrowth float64
	// ModalShift is the share of private-transport users switching to bus.
	ModalShift float64
	// CongestionReduction is the conservative congestion-index reduction.
	CongestionReduction float64
}

// AstanaProfile returns the city constants the analysis was built on.
func AstanaProfile() CityProfile {
	return CityProfile{
		Population:            1_612_512,
		BusPassengersDaily:    1_005_329,
		PrivateTransportShare: 0.624,
		TotalBuses:            1_735,
		AvgBusSpeedKmh:        18,
		AvgTripTimeMin:        50,
		AvgPassengersCar:      1.6,
		TrafficIntensity:      7_000,
		AvgLanes:              2,
		ParkingCostPerHour:    100,
		ParkingSearchTimeMin:  7.6,
		CarCO2GramsPerKm:      170,
		BusCO2GramsPerKm:      800,
		AvgBusKmPerDay:        150,
		CarFuelLPer100Km:      8.5,
		FuelPricePerLiter:     250,
		AvgHighwaySpeedKmh:    23,
		CongestionIndex:       6.5,
	}
}

// DefaultAssumptions returns the conservative adoption scenario: the mean
// bus-speed gain observed in simulation, 20% ridership growth, 10% modal
// shift, 20% congestion reduction.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		BusSpeedImprovement: 0.198,
		PassengerGrowth:     0.20,
		ModalShift:          0.10,
		CongestionReduction: 0.20,
	}
}

// Derived sizing constants.
const (
	tripsPerPerson     = 2    // there and back
	activeCarHours     = 12   // daily active cars ~ peak intensity x 12
	capacityPerLane    = 1800 // vehicles/hour/lane
	avgTripTimeMinutes = 24.79
	parkingHoursPerDay = 2
	workdayHours       = 8
	daysPerYear        = 365
	gramsPerTon        = 1_000_000
)

// Estimate computes the city-scale estimate for a comparison run.
func Estimate(profile CityProfile, a Assumptions, runID int64) domain.ImpactEstimate {
	privateUsers := float64(profile.Population) * profile.PrivateTransportShare
	dailyActiveCars := profile.TrafficIntensity * activeCarHours

	// Ridership and speed.
	passengersBefore := float64(profile.BusPassengersDaily)
	passengersAfter := passengersBefore * (1 + a.PassengerGrowth)
	speedAfter := profile.AvgBusSpeedKmh * (1 + a.BusSpeedImprovement)

	// Modal shift: switchers stop driving, removing cars from the road.
	switchers := privateUsers * a.ModalShift
	carsRemoved := switchers / profile.AvgPassengersCar
	trafficReductionHourly := carsRemoved / 24

	// Time savings across all bus trips.
	tripTimeAfter := profile.AvgTripTimeMin / (1 + a.BusSpeedImprovement)
	savedPerTripMin := profile.AvgTripTimeMin - tripTimeAfter
	timeSavedHoursDaily := savedPerTripMin * passengersAfter * tripsPerPerson / 60
	timeSavedHoursYearly := timeSavedHoursDaily * daysPerYear

	// CO2: cars before vs after the shift; the bus fleet is held constant.
	avgCarTripKm := (avgTripTimeMinutes / 60) * profile.AvgHighwaySpeedKmh
	carKmBefore := dailyActiveCars * tripsPerPerson * avgCarTripKm
	co2CarsBefore := carKmBefore * profile.CarCO2GramsPerKm / gramsPerTon
	co2Buses := float64(profile.TotalBuses) * profile.AvgBusKmPerDay * profile.BusCO2GramsPerKm / gramsPerTon

	carKmAfter := (dailyActiveCars - carsRemoved) * tripsPerPerson * avgCarTripKm
	co2CarsAfter := carKmAfter * profile.CarCO2GramsPerKm / gramsPerTon

	co2Before := co2CarsBefore + co2Buses
	co2After := co2CarsAfter + co2Buses
	co2SavedYearly := (co2Before - co2After) * daysPerYear

	// Fuel not burned by removed cars.
	kmSavedDaily := carsRemoved * avgCarTripKm * tripsPerPerson
	fuelSavedYearly := kmSavedDaily * daysPerYear * profile.CarFuelLPer100Km / 100
	fuelCostSavedYearly := fuelSavedYearly * profile.FuelPricePerLiter

	// Road load at peak hour.
	totalCapacity := capacityPerLane * profile.AvgLanes
	loadBefore := profile.TrafficIntensity / totalCapacity * 100
	loadAfter := (profile.TrafficIntensity - trafficReductionHourly) / totalCapacity * 100

	// Parking savings for switchers.
	parkingSavingsYearly := switchers * parkingHoursPerDay * profile.ParkingCostPerHour * daysPerYear

	return domain.ImpactEstimate{
		RunID:                 runID,
		BusSpeedBefore:        profile.AvgBusSpeedKmh,
		BusSpeedAfter:         speedAfter,
		PassengersBefore:      int64(passengersBefore),
		PassengersAfter:       int64(passengersAfter),
		CarsRemovedDaily:      int64(carsRemoved),
		CongestionBefore:      profile.CongestionIndex,
		CongestionAfter:       profile.CongestionIndex * (1 - a.CongestionReduction),
		TimeSavedHoursYearly:  int64(timeSavedHoursYearly),
		CO2BeforeDailyTons:    co2Before,
		CO2AfterDailyTons:     co2After,
		CO2SavedYearlyTons:    co2SavedYearly,
		FuelSavedYearlyLiters: int64(fuelSavedYearly),
		FuelCostSavedYearly:   int64(fuelCostSavedYearly),
		ParkingSavingsYearly:  int64(parkingSavingsYearly),
		RoadLoadBeforePct:     loadBefore,
		RoadLoadAfterPct:      loadAfter,
		TotalBenefitYearly:    int64(fuelCostSavedYearly + parkingSavingsYearly),
		CreatedAt:             time.Now().Unix(),
	}
}

// FromRun derives the adoption assumptions from a recorded comparison: the
// bus waiting-time improvement maps onto corridor speed, scaled down to a
// conservative city-wide figure.
func FromRun(run *domain.ComparisonRun) Assumptions {
	a := DefaultAssumptions()
	if run == nil {
		return a
	}
	// A corridor-level waiting improvement does not transfer 1:1 to
	// network speed; halve it and cap at the measured default.
	derived := run.BusImprovementPct / 100 / 2
	if derived > 0 && derived < a.BusSpeedImprovement {
		a.BusSpeedImprovement = derived
	}
	return a
}
