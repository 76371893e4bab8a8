package database

import (
	"context"
	"database/sql"
	"fmt"

	"behavior-fit/pkg/models"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS dataset (
	user_id          INTEGER NOT NULL,
	registration_day INTEGER NOT NULL,
	cohort_day       INTEGER NOT NULL,
	active_time      REAL    NOT NULL,
	daily_payers     INTEGER NOT NULL,
	new_payers       INTEGER NOT NULL,
	payer            INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dataset_user ON dataset(user_id, cohort_day);
CREATE INDEX IF NOT EXISTS idx_dataset_group ON dataset(registration_day, cohort_day);
`

// Store est le moteur d'agrégation : une base SQLite (fichier ou mémoire)
// contenant la table dataset, interrogée une seule fois avant la boucle de
// recherche pour les agrégats invariants.
type Store struct {
	db *sql.DB
}

// Open ouvre la base SQLite et applique le schéma. ":memory:" pour une base
// en mémoire. Une seule connexion : chaque connexion vers ":memory:" verrait
// sinon une base vide distincte.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Stage insère les enregistrements d'activité dans la table dataset,
// en une seule transaction.
func (s *Store) Stage(ctx context.Context, records []models.ActivityRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dataset (user_id, registration_day, cohort_day, active_time, daily_payers, new_payers, payer)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.UserID, r.RegistrationDay, r.CohortDay, r.ActiveTime, r.DailyPayers, r.NewPayers, r.Payer); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert user=%d day=%d: %w", r.UserID, r.CohortDay, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Records relit le dataset complet, trié par (user_id, cohort_day) — l'ordre
// attendu par le simulateur pour les fenêtres par utilisateur.
func (s *Store) Records(ctx context.Context) ([]models.ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, registration_day, cohort_day, active_time, daily_payers, new_payers, payer
		FROM dataset
		ORDER BY user_id, cohort_day`)
	if err != nil {
		return nil, fmt.Errorf("select dataset: %w", err)
	}
	defer rows.Close()

	var out []models.ActivityRecord
	for rows.Next() {
		var r models.ActivityRecord
		if err := rows.Scan(&r.UserID, &r.RegistrationDay, &r.CohortDay,
			&r.ActiveTime, &r.DailyPayers, &r.NewPayers, &r.Payer); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ActivityWindow agrège le temps d'activité cumulé par utilisateur sur les
// premiers jours de cohorte (cohort_day <= days) — l'entrée du score
// d'engagement.
func (s *Store) ActivityWindow(ctx context.Context, days int) (map[int64]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, SUM(active_time)
		FROM dataset
		WHERE cohort_day <= ?
		GROUP BY user_id`, days)
	if err != nil {
		return nil, fmt.Errorf("activity window: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var at float64
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("scan activity window: %w", err)
		}
		out[id] = at
	}
	return out, rows.Err()
}

// GroupStats calcule, par groupe (registration_day, cohort_day), la taille et
// le taux d'achat journalier réel sum(daily_payers)/count(*). Invariant sur
// toute la recherche.
func (s *Store) GroupStats(ctx context.Context) (map[models.GroupKey]models.GroupStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT registration_day, cohort_day, COUNT(*), SUM(daily_payers) * 1.0 / COUNT(*)
		FROM dataset
		GROUP BY registration_day, cohort_day`)
	if err != nil {
		return nil, fmt.Errorf("group stats: %w", err)
	}
	defer rows.Close()

	out := make(map[models.GroupKey]models.GroupStat)
	for rows.Next() {
		var k models.GroupKey
		var st models.GroupStat
		if err := rows.Scan(&k.RegistrationDay, &k.CohortDay, &st.Size, &st.PurchaseRate); err != nil {
			return nil, fmt.Errorf("scan group stats: %w", err)
		}
		out[k] = st
	}
	return out, rows.Err()
}

// CohortSizes donne la taille de chaque cohorte d'inscription. Les cohortes
// ne sont complètes qu'au jour 0, d'où le calcul séparé.
func (s *Store) CohortSizes(ctx context.Context) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT registration_day, COUNT(*)
		FROM dataset
		WHERE cohort_day = 0
		GROUP BY registration_day`)
	if err != nil {
		return nil, fmt.Errorf("cohort sizes: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int)
	for rows.Next() {
		var day, size int
		if err := rows.Scan(&day, &size); err != nil {
			return nil, fmt.Errorf("scan cohort sizes: %w", err)
		}
		out[day] = size
	}
	return out, rows.Err()
}

// CumulativePayers donne, par groupe, le nombre d'utilisateurs ayant déjà
// payé à ce jour de cohorte : somme fenêtrée des new_payers partitionnée par
// cohorte d'inscription.
func (s *Store) CumulativePayers(ctx context.Context) (map[models.GroupKey]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH new_payers AS (
			SELECT registration_day, cohort_day, SUM(new_payers) AS new_payers
			FROM dataset
			GROUP BY registration_day, cohort_day
		)
		SELECT registration_day, cohort_day,
		       SUM(new_payers) OVER (PARTITION BY registration_day ORDER BY cohort_day)
		FROM new_payers`)
	if err != nil {
		return nil, fmt.Errorf("cumulative payers: %w", err)
	}
	defer rows.Close()

	out := make(map[models.GroupKey]float64)
	for rows.Next() {
		var k models.GroupKey
		var payers float64
		if err := rows.Scan(&k.RegistrationDay, &k.CohortDay, &payers); err != nil {
			return nil, fmt.Errorf("scan cumulative payers: %w", err)
		}
		out[k] = payers
	}
	return out, rows.Err()
}
