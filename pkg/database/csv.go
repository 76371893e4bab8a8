package database

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"behavior-fit/pkg/models"
)

// ReadCSV charge un dataset d'activité depuis un fichier CSV avec en-tête.
// Les colonnes user_id, registration_day, cohort_day, active_time,
// daily_payers, new_payers et payer sont obligatoires ; l'ordre est libre et
// les colonnes supplémentaires sont ignorées.
func ReadCSV(path string) ([]models.ActivityRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return readCSV(f)
}

func readCSV(r io.Reader) ([]models.ActivityRecord, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range []string{"user_id", "registration_day", "cohort_day", "active_time", "daily_payers", "new_payers", "payer"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("colonne manquante: %s", name)
		}
	}

	var out []models.ActivityRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++

		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("ligne %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(row []string, cols map[string]int) (models.ActivityRecord, error) {
	var rec models.ActivityRecord
	var err error

	if rec.UserID, err = strconv.ParseInt(row[cols["user_id"]], 10, 64); err != nil {
		return rec, fmt.Errorf("user_id: %w", err)
	}
	if rec.RegistrationDay, err = strconv.Atoi(row[cols["registration_day"]]); err != nil {
		return rec, fmt.Errorf("registration_day: %w", err)
	}
	if rec.CohortDay, err = strconv.Atoi(row[cols["cohort_day"]]); err != nil {
		return rec, fmt.Errorf("cohort_day: %w", err)
	}
	if rec.ActiveTime, err = strconv.ParseFloat(row[cols["active_time"]], 64); err != nil {
		return rec, fmt.Errorf("active_time: %w", err)
	}
	if rec.DailyPayers, err = strconv.Atoi(row[cols["daily_payers"]]); err != nil {
		return rec, fmt.Errorf("daily_payers: %w", err)
	}
	if rec.NewPayers, err = strconv.Atoi(row[cols["new_payers"]]); err != nil {
		return rec, fmt.Errorf("new_payers: %w", err)
	}
	if rec.Payer, err = strconv.Atoi(row[cols["payer"]]); err != nil {
		return rec, fmt.Errorf("payer: %w", err)
	}
	return rec, nil
}
