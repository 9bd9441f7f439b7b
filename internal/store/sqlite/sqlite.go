// Package sqlite persists the redundancy policy in a small key/value
// settings table. Each policy field is stored as its own row with a JSON
// encoded value, so single-field saves from the engine stay cheap.
package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/psufleet/coldswap/pkg/redundancy"
)

const TABLE_NAME = "coldswap_settings"

type setting struct {
	Name  string `db:"name"`
	Value string `db:"value"`
}

type Store struct {
	db *sqlx.DB
}

// Open opens (and creates if needed) the settings database at path.
func Open(path string) (*Store, error) {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		name 	TEXT NOT NULL PRIMARY KEY,
		value 	TEXT NOT NULL
	);
	`, TABLE_NAME)
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create settings table: %v", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveProperty upserts one policy field.
func (s *Store) SaveProperty(name string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %v", name, err)
	}
	sql := fmt.Sprintf(`INSERT OR REPLACE INTO %s (name, value) VALUES (:name, :value);`, TABLE_NAME)
	if _, err := s.db.NamedExec(sql, &setting{Name: name, Value: string(encoded)}); err != nil {
		return fmt.Errorf("failed to save %s: %v", name, err)
	}
	return nil
}

// LoadPolicy overlays stored fields onto the given defaults. Missing rows
// keep the default; malformed or out-of-range values are reported through
// the returned error list and also keep the default, matching the
// engine's keep-prior-value policy.
func (s *Store) LoadPolicy(defaults redundancy.Policy) (redundancy.Policy, []error) {
	var (
		rows    []setting
		errList []error
	)
	policy := defaults

	err := s.db.Select(&rows, fmt.Sprintf("SELECT * FROM %s;", TABLE_NAME))
	if err != nil {
		return policy, []error{fmt.Errorf("failed to read settings: %v", err)}
	}

	for _, row := range rows {
		switch row.Name {
		case redundancy.PropEnabled:
			if err := json.Unmarshal([]byte(row.Value), &policy.Enabled); err != nil {
				errList = append(errList, fmt.Errorf("malformed %s: %v", row.Name, err))
			}
		case redundancy.PropRotationEnabled:
			if err := json.Unmarshal([]byte(row.Value), &policy.RotationEnabled); err != nil {
				errList = append(errList, fmt.Errorf("malformed %s: %v", row.Name, err))
			}
		case redundancy.PropAlgorithm:
			var raw string
			if err := json.Unmarshal([]byte(row.Value), &raw); err != nil {
				errList = append(errList, fmt.Errorf("malformed %s: %v", row.Name, err))
				continue
			}
			algo, ok := redundancy.ParseAlgorithm(raw)
			if !ok {
				errList = append(errList, fmt.Errorf("invalid rotation algorithm %q", raw))
				continue
			}
			policy.Algorithm = algo
		case redundancy.PropRankOrder:
			var ranks []uint8
			if err := json.Unmarshal([]byte(row.Value), &ranks); err != nil {
				errList = append(errList, fmt.Errorf("malformed %s: %v", row.Name, err))
				continue
			}
			policy.RankOrder = ranks
		case redundancy.PropRotationPeriod:
			var period time.Duration
			if err := json.Unmarshal([]byte(row.Value), &period); err != nil {
				errList = append(errList, fmt.Errorf("malformed %s: %v", row.Name, err))
				continue
			}
			if period < redundancy.MinRotationPeriod || period > redundancy.MaxRotationPeriod {
				errList = append(errList, fmt.Errorf(
					"invalid rotation period %s, valid range is [%s, %s]",
					period, redundancy.MinRotationPeriod, redundancy.MaxRotationPeriod))
				continue
			}
			policy.RotationPeriod = period
		}
	}
	return policy, errList
}
