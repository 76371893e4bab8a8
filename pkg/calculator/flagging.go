package calculator

import (
	"math/rand"

	"behavior-fit/pkg/models"
)

// flags porte les trois colonnes dérivées du marquage synthétique, alignées
// sur Frame.Records : le marquage du jour, le marquage cumulé (max glissant
// par utilisateur) et le premier marquage (différence première du max).
type flags struct {
	daily []float64
	ever  []float64
	first []float64
}

// flagRecords marque les paiements synthétiques. Par groupe
// (registration_day, cohort_day) : poolPercent = part des membres dont la
// propension atteint le seuil ; un membre éligible est marqué si
// rng*poolPercent < taux d'achat réel du groupe, ce qui reproduit en
// espérance le taux observé, concentré sur le pool. Un pool vide ne marque
// personne (aucune division).
func (f *Frame) flagRecords(propensity map[int64]float64, cutoff float64, rng *rand.Rand) flags {
	n := len(f.Records)
	fl := flags{
		daily: make([]float64, n),
		ever:  make([]float64, n),
		first: make([]float64, n),
	}

	for _, g := range f.groups {
		eligible := 0
		for _, i := range g.idx {
			if propensity[f.Records[i].UserID] >= cutoff {
				eligible++
			}
		}
		poolPercent := float64(eligible) / float64(len(g.idx))
		rate := f.purchaseRate(g.key)
		for _, i := range g.idx {
			if propensity[f.Records[i].UserID] >= cutoff && rng.Float64()*poolPercent < rate {
				fl.daily[i] = 1
			}
		}
	}

	// max glissant et différence première, par utilisateur, cohort_day croissant
	for _, sp := range f.spans {
		run, prev := 0.0, 0.0
		for i := sp.start; i < sp.end; i++ {
			if fl.daily[i] > run {
				run = fl.daily[i]
			}
			fl.ever[i] = run
			fl.first[i] = run - prev
			prev = run
		}
	}
	return fl
}

// PayerSelector fournit les colonnes "flagged" du pipeline d'agrégation :
// soit le marquage synthétique (run modèle), soit la vérité terrain
// (run de référence). Les deux pipelines quasi identiques de l'outil
// d'origine sont ainsi fusionnés en un seul, paramétré.
type PayerSelector interface {
	DailyFlagged(i int) float64
	Flagged(i int) float64
	NewFlagged(i int) float64
}

type syntheticSelector struct{ fl flags }

func (s syntheticSelector) DailyFlagged(i int) float64 { return s.fl.daily[i] }
func (s syntheticSelector) Flagged(i int) float64      { return s.fl.ever[i] }
func (s syntheticSelector) NewFlagged(i int) float64   { return s.fl.first[i] }

type groundTruthSelector struct{ recs []models.ActivityRecord }

func (s groundTruthSelector) DailyFlagged(i int) float64 { return float64(s.recs[i].DailyPayers) }
func (s groundTruthSelector) Flagged(i int) float64      { return float64(s.recs[i].Payer) }
func (s groundTruthSelector) NewFlagged(i int) float64   { return float64(s.recs[i].NewPayers) }
