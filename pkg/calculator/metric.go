package calculator

import (
	"fmt"
	"math"

	"behavior-fit/pkg/models"
)

// MetricError quantifie la divergence réel/simulé : pour les paires
// (payer_retention, flagged_retention) et (cohort_conversion,
// cohort_conversion_flagged), somme de |a-b|/(a+b) sur les jours présents,
// puis maximum des deux sommes — la recherche optimise la métrique la plus
// difficile à reproduire. Une somme a+b nulle ou non finie est une erreur
// fatale (ratio dégénéré).
func MetricError(rows []models.CohortMetricsRow) (float64, error) {
	retention, err := pairError(rows, "retention",
		func(r models.CohortMetricsRow) float64 { return r.PayerRetention },
		func(r models.CohortMetricsRow) float64 { return r.FlaggedRetention })
	if err != nil {
		return 0, err
	}
	conversion, err := pairError(rows, "conversion",
		func(r models.CohortMetricsRow) float64 { return r.CohortConversion },
		func(r models.CohortMetricsRow) float64 { return r.CohortConversionFlagged })
	if err != nil {
		return 0, err
	}
	return math.Max(retention, conversion), nil
}

func pairError(rows []models.CohortMetricsRow, name string, a, b func(models.CohortMetricsRow) float64) (float64, error) {
	sum := 0.0
	for _, r := range rows {
		av, bv := a(r), b(r)
		d := av + bv
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return 0, fmt.Errorf("ratio dégénéré (%s) au cohort_day %d", name, r.CohortDay)
		}
		sum += math.Abs(av-bv) / d
	}
	return sum, nil
}
