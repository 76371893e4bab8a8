package calculator

import (
	"math/rand"
	"sort"

	"behavior-fit/pkg/models"
)

// totals accumule les sommes d'un jour de cohorte, toutes cohortes
// d'inscription confondues.
type totals struct {
	dau, mDAU, dailyPayers           float64
	fDAU, dailyFlagged               float64
	cohortSize, payers, totalFlagged float64
}

// Aggregate réduit le dataset en une ligne de métriques par cohort_day,
// croissant. Le dénominateur cohort_size est figé à la population du jour 0 ;
// payers et total_flagged sont des cumuls par cohorte d'inscription. Les
// dénominateurs nuls produisent des NaN, non masqués.
func (f *Frame) Aggregate(sel PayerSelector) []models.CohortMetricsRow {
	perDay := make(map[int]*totals)

	for _, reg := range f.regDays {
		size := float64(f.cohortSize[reg])
		cumFlagged := 0.0
		for _, gi := range f.byReg[reg] {
			g := f.groups[gi]

			var dau, mDAU, dailyPayers, fDAU, dailyFlagged, newFlagged float64
			for _, i := range g.idx {
				dau++
				dailyPayers += float64(f.Records[i].DailyPayers)
				mDAU += float64(f.Records[i].Payer)
				fDAU += sel.Flagged(i)
				dailyFlagged += sel.DailyFlagged(i)
				newFlagged += sel.NewFlagged(i)
			}
			cumFlagged += newFlagged

			t := perDay[g.key.CohortDay]
			if t == nil {
				t = &totals{}
				perDay[g.key.CohortDay] = t
			}
			t.dau += dau
			t.mDAU += mDAU
			t.dailyPayers += dailyPayers
			t.fDAU += fDAU
			t.dailyFlagged += dailyFlagged
			t.cohortSize += size
			t.payers += f.cumPayers[g.key]
			t.totalFlagged += cumFlagged
		}
	}

	days := make([]int, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sort.Ints(days)

	rows := make([]models.CohortMetricsRow, 0, len(days))
	for _, d := range days {
		t := perDay[d]
		rows = append(rows, models.CohortMetricsRow{
			CohortDay:         d,
			Retention:         t.dau / t.cohortSize * 100,
			PayerRetention:    t.mDAU / t.payers * 100,
			CohortConversion:  t.payers / t.cohortSize * 100,
			DailyPurchaseRate: t.dailyPayers / t.dau * 100,

			TotalFlagged:            t.totalFlagged,
			FlaggedRetention:        t.fDAU / t.totalFlagged * 100,
			CohortConversionFlagged: t.totalFlagged / t.cohortSize * 100,
			DailyFlaggedRate:        t.dailyFlagged / t.dau * 100,
		})
	}
	return rows
}

// Model exécute une passe complète du modèle : marquage synthétique au seuil
// donné puis agrégation.
func (f *Frame) Model(propensity map[int64]float64, cutoff float64, rng *rand.Rand) []models.CohortMetricsRow {
	return f.Aggregate(syntheticSelector{fl: f.flagRecords(propensity, cutoff, rng)})
}

// Reference est le run de biais de sélection : marquage aléatoire uniforme au
// taux d'achat réel de chaque groupe, sans propension. Équivaut au modèle
// avec propension 1 pour tous et seuil 0 (pool complet).
func (f *Frame) Reference(rng *rand.Rand) []models.CohortMetricsRow {
	prop := make(map[int64]float64, len(f.Engagement))
	for id := range f.Engagement {
		prop[id] = 1
	}
	return f.Model(prop, 0, rng)
}

// GroundTruth agrège le dataset avec les colonnes "flagged" tirées de la
// vérité terrain. Les courbes simulées et réelles y coïncident par
// construction.
func (f *Frame) GroundTruth() []models.CohortMetricsRow {
	return f.Aggregate(groundTruthSelector{recs: f.Records})
}

// FilterDays garde les lignes avec 0 < cohort_day < horizon, la fenêtre de
// comparaison de la recherche.
func FilterDays(rows []models.CohortMetricsRow, horizon int) []models.CohortMetricsRow {
	out := make([]models.CohortMetricsRow, 0, len(rows))
	for _, r := range rows {
		if r.CohortDay > 0 && r.CohortDay < horizon {
			out = append(out, r)
		}
	}
	return out
}
