package models

/*
LOAD → types simples pour charger les données brutes du dataset.
*/

// ActivityRecord représente une ligne (utilisateur, jour de cohorte) telle
// qu'elle est lue depuis le CSV ou la base de données.
type ActivityRecord struct {
	UserID          int64
	RegistrationDay int     // Jour d'entrée dans la cohorte.
	CohortDay       int     // Jours écoulés depuis l'inscription (>= 0).
	ActiveTime      float64 // Temps d'activité du jour (>= 0).
	DailyPayers     int     // Paiements réels observés ce jour.
	NewPayers       int     // Premier paiement ce jour (0/1).
	Payer           int     // A déjà payé à ce jour de cohorte (0/1).
}

// GroupKey identifie un groupe (cohorte d'inscription, jour de cohorte).
type GroupKey struct {
	RegistrationDay int
	CohortDay       int
}

// GroupStat contient les agrégats invariants d'un groupe : taille et taux
// d'achat journalier réel (daily_payers / taille).
type GroupStat struct {
	Size         int
	PurchaseRate float64
}

/*
COMPUTE → structures de résultat du pipeline d'agrégation et de la recherche.
*/

// CohortMetricsRow contient les métriques agrégées pour un jour de cohorte,
// sommées sur toutes les cohortes d'inscription ayant atteint ce jour.
// Toutes les valeurs sont des pourcentages ; un dénominateur nul produit un
// NaN qui n'est pas masqué (limitation connue, voir DESIGN.md).
type CohortMetricsRow struct {
	CohortDay         int
	Retention         float64 // dau / cohort_size * 100
	PayerRetention    float64 // mDAU / payers * 100
	CohortConversion  float64 // payers / cohort_size * 100
	DailyPurchaseRate float64 // daily_payers / dau * 100

	TotalFlagged            float64 // Cumul des utilisateurs simulés payeurs.
	FlaggedRetention        float64 // fDAU / total_flagged * 100
	CohortConversionFlagged float64 // total_flagged / cohort_size * 100
	DailyFlaggedRate        float64 // daily_flagged / dau * 100
}

// SearchResult est la surface d'erreur produite par la recherche sur grille :
// Errors[i][j] correspond à Correlations[i] et Cutoffs[j].
type SearchResult struct {
	Errors       [][]float64
	Correlations []float64
	Cutoffs      []float64
}

// Best renvoie la cellule de la grille avec l'erreur moyenne minimale.
// ok vaut false si la grille est vide.
func (r SearchResult) Best() (corr, cutoff, err float64, ok bool) {
	for i, row := range r.Errors {
		for j, e := range row {
			if !ok || e < err {
				corr, cutoff, err, ok = r.Correlations[i], r.Cutoffs[j], e, true
			}
		}
	}
	return corr, cutoff, err, ok
}

/*
CONFIG → paramètres globaux
*/

// Config contient les paramètres passés au moteur de recherche.
type Config struct {
	Correlation  [2]float64 // Plage [min, max) de corrélation à balayer.
	CutoffPoints [2]float64 // Plage [min, max) de seuil de propension.
	Resolution   float64    // Pas de la grille.
	NFold        int        // Répétitions par cellule (moyenne du bruit).
	Days         int        // Fenêtre d'observation de l'engagement (jours).
	Horizon      int        // Borne exclusive du filtre cohort_day (1..Horizon-1).
	Seed         int64      // Graine des tirages aléatoires.
	Workers      int        // Taille du pool de workers (0 = NumCPU).
	Silent       bool       // Supprime la sortie de progression.
	Verbose      bool       // Flag pour activer les logs détaillés.
}
