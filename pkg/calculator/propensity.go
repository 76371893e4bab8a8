package calculator

import (
	"math/rand"
	"sort"
)

// EngagementScores calcule le rang CDF empirique inclusif du temps d'activité
// cumulé : engagement(u) = part des utilisateurs dont le temps cumulé est
// <= celui de u. Les ex æquo partagent la même valeur ; si tous les temps
// sont identiques, l'engagement vaut 1.0 pour tout le monde.
func EngagementScores(activeTime map[int64]float64) map[int64]float64 {
	n := len(activeTime)
	out := make(map[int64]float64, n)
	if n == 0 {
		return out
	}

	values := make([]float64, 0, n)
	for _, at := range activeTime {
		values = append(values, at)
	}
	sort.Float64s(values)

	for id, at := range activeTime {
		// nombre de valeurs <= at
		rank := sort.Search(n, func(i int) bool { return values[i] > at })
		out[id] = float64(rank) / float64(n)
	}
	return out
}

// PropensityScores mélange l'engagement avec du bruit uniforme :
// r*(1-corr) + corr*engagement. À corr=0 le score est du bruit pur, à
// corr=1 il vaut exactement l'engagement. Les tirages se font dans l'ordre
// croissant des user_id, donc le résultat est déterministe pour un rng donné.
func PropensityScores(engagement map[int64]float64, corr float64, rng *rand.Rand) map[int64]float64 {
	users := make([]int64, 0, len(engagement))
	for id := range engagement {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	out := make(map[int64]float64, len(users))
	for _, id := range users {
		out[id] = rng.Float64()*(1-corr) + corr*engagement[id]
	}
	return out
}

// Score est la composition des deux étapes : temps d'activité cumulé →
// propension au paiement. Chaque appel retire du bruit frais.
func Score(activeTime map[int64]float64, corr float64, rng *rand.Rand) map[int64]float64 {
	return PropensityScores(EngagementScores(activeTime), corr, rng)
}
