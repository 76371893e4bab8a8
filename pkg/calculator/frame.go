package calculator

import (
	"context"
	"fmt"
	"sort"

	"behavior-fit/pkg/database"
	"behavior-fit/pkg/models"
)

const (
	// DefaultDays est la fenêtre d'observation de l'engagement.
	DefaultDays = 60
	// DefaultHorizon est la borne exclusive du filtre cohort_day (1..179).
	DefaultHorizon = 180
)

// Frame est la vue en mémoire du dataset utilisée par la simulation :
// les enregistrements partagés en lecture seule, plus les agrégats
// invariants précalculés une seule fois avant la boucle de recherche
// (tailles de cohortes, taux d'achat par groupe, payeurs cumulés, rangs
// d'engagement).
type Frame struct {
	Records    []models.ActivityRecord // triés par (user_id, cohort_day)
	Engagement map[int64]float64

	groups     []frameGroup  // triés par (registration_day, cohort_day)
	byReg      map[int][]int // indices dans groups, cohort_day croissant
	regDays    []int
	spans      []span // fenêtres par utilisateur dans Records
	stats      map[models.GroupKey]models.GroupStat
	cohortSize map[int]int
	cumPayers  map[models.GroupKey]float64
}

type frameGroup struct {
	key models.GroupKey
	idx []int
}

// span délimite les enregistrements [start, end) d'un utilisateur.
type span struct {
	start, end int
}

// Load construit le Frame depuis le Store : une passe de requêtes
// d'agrégation, puis plus aucun accès au moteur pendant la recherche.
func Load(ctx context.Context, store *database.Store, days int) (*Frame, error) {
	if days <= 0 {
		days = DefaultDays
	}
	records, err := store.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	activeTime, err := store.ActivityWindow(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("load activity window: %w", err)
	}
	stats, err := store.GroupStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("load group stats: %w", err)
	}
	sizes, err := store.CohortSizes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cohort sizes: %w", err)
	}
	cumPayers, err := store.CumulativePayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cumulative payers: %w", err)
	}
	return NewFrame(records, activeTime, stats, sizes, cumPayers)
}

// NewFrame assemble un Frame depuis des données déjà agrégées. Les
// enregistrements sont retriés par (user_id, cohort_day), l'ordre requis
// pour les fenêtres par utilisateur du marquage.
func NewFrame(
	records []models.ActivityRecord,
	activeTime map[int64]float64,
	stats map[models.GroupKey]models.GroupStat,
	cohortSizes map[int]int,
	cumPayers map[models.GroupKey]float64,
) (*Frame, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset vide")
	}

	recs := make([]models.ActivityRecord, len(records))
	copy(recs, records)
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].UserID != recs[j].UserID {
			return recs[i].UserID < recs[j].UserID
		}
		return recs[i].CohortDay < recs[j].CohortDay
	})

	f := &Frame{
		Records:    recs,
		Engagement: EngagementScores(activeTime),
		stats:      stats,
		cohortSize: cohortSizes,
		cumPayers:  cumPayers,
	}

	// fenêtres par utilisateur
	start := 0
	for i := 1; i <= len(recs); i++ {
		if i == len(recs) || recs[i].UserID != recs[start].UserID {
			f.spans = append(f.spans, span{start: start, end: i})
			start = i
		}
	}

	// groupes (registration_day, cohort_day)
	byKey := make(map[models.GroupKey][]int)
	for i, r := range recs {
		k := models.GroupKey{RegistrationDay: r.RegistrationDay, CohortDay: r.CohortDay}
		byKey[k] = append(byKey[k], i)
	}
	keys := make([]models.GroupKey, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].RegistrationDay != keys[j].RegistrationDay {
			return keys[i].RegistrationDay < keys[j].RegistrationDay
		}
		return keys[i].CohortDay < keys[j].CohortDay
	})
	f.byReg = make(map[int][]int)
	for _, k := range keys {
		f.groups = append(f.groups, frameGroup{key: k, idx: byKey[k]})
		if _, seen := f.byReg[k.RegistrationDay]; !seen {
			f.regDays = append(f.regDays, k.RegistrationDay)
		}
		f.byReg[k.RegistrationDay] = append(f.byReg[k.RegistrationDay], len(f.groups)-1)
	}
	return f, nil
}

// purchaseRate renvoie le taux d'achat journalier réel du groupe.
func (f *Frame) purchaseRate(k models.GroupKey) float64 {
	return f.stats[k].PurchaseRate
}
