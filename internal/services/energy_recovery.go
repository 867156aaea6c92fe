package services

import (
	"slices"

	"canal-optimization-service/internal/config"
	"canal-optimization-service/internal/domain"
)

const waterDensity = 1000.0 // kg/m³

// AnalyzeEnergyRecovery scans the optimized flows for gates where head is
// being burned that a micro-turbine could recover.
//
// Power is ρ·g·Q·ΔH·η. Sites under the configured minimum power are
// omitted from the output — too small to justify hardware, not an error.
// Results are sorted by descending power, ties on gate id.
func AnalyzeEnergyRecovery(
	gates []domain.Gate,
	segmentFlows map[string]float64,
	cfg config.EnergyConfig,
) []domain.EnergySite {
	var sites []domain.EnergySite

	for _, g := range gates {
		head := g.UpstreamHeadM - g.DownstreamHeadM
		if head <= 0 {
			continue
		}

		flow := segmentFlows[g.DownstreamSegment]
		if flow <= 0 {
			continue
		}

		powerW := waterDensity * 9.81 * flow * head * cfg.CombinedEfficiency
		powerKW := powerW / 1000.0
		if powerKW < cfg.MinPowerKW {
			continue
		}

		annualKWh := powerKW * cfg.OperatingHoursYear

		payback := 0.0
		if annualRevenue := annualKWh * cfg.TariffPerKWh; annualRevenue > 0 {
			payback = (cfg.CapitalPerKW * powerKW) / annualRevenue
		}

		sites = append(sites, domain.EnergySite{
			GateID:       g.GateID,
			PowerKW:      powerKW,
			AnnualKWh:    annualKWh,
			PaybackYears: payback,
			HeadM:        head,
			FlowM3s:      flow,
		})
	}

	slices.SortFunc(sites, func(a, b domain.EnergySite) int {
		if a.PowerKW > b.PowerKW {
			return -1
		}
		if a.PowerKW < b.PowerKW {
			return 1
		}
		if a.GateID < b.GateID {
			return -1
		}
		if a.GateID > b.GateID {
			return 1
		}
		return 0
	})

	return sites
}
