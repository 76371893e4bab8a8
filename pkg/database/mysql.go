package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"behavior-fit/pkg/models"

	_ "github.com/go-sql-driver/mysql"
)

// OpenMySQL DSN mariadb:// ou mysql:// → format MySQL driver
func OpenMySQL(dsn string) (*sql.DB, string, error) {
	mysqlDSN, err := toMySQLDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open("mysql", mysqlDSN)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, mysqlDSN, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// FetchActivity lit les enregistrements d'activité depuis une table
// MariaDB/MySQL portant les colonnes du dataset (voir pkg/models).
func FetchActivity(ctx context.Context, db *sql.DB, tableName string) ([]models.ActivityRecord, error) {
	if !regexp.MustCompile(`^[A-Za-z0-9_]+$`).MatchString(tableName) {
		return nil, fmt.Errorf("table invalide")
	}

	q := fmt.Sprintf(`
		SELECT user_id, registration_day, cohort_day, active_time, daily_payers, new_payers, payer
		FROM %s
		ORDER BY user_id, cohort_day`, tableName)

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", tableName, err)
	}
	defer rows.Close()

	var out []models.ActivityRecord
	for rows.Next() {
		var r models.ActivityRecord
		var at sql.NullFloat64
		if err := rows.Scan(&r.UserID, &r.RegistrationDay, &r.CohortDay,
			&at, &r.DailyPayers, &r.NewPayers, &r.Payer); err != nil {
			return nil, fmt.Errorf("scan %s: %w", tableName, err)
		}
		if at.Valid {
			r.ActiveTime = at.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
