// Command dataset-export flattens the complaints table into the per-day
// training dataset the forecasting models consume: one row per
// (neighborhood, date) with the total complaint count and a column per
// offense category.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

var (
	dsn     = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	outPath = flag.String("out", "dataset.csv", "output CSV path")
	topN    = flag.Int("top", 20, "number of most frequent offense categories to pivot into columns")
)

type cell struct {
	neighborhood string
	date         string
}

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	offenses, err := topOffenses(ctx, db, *topN)
	if err != nil {
		fatalf("load offense categories: %v", err)
	}
	if len(offenses) == 0 {
		fatalf("no complaints with offense descriptions in the database")
	}

	rows, totals, err := dailyCounts(ctx, db, offenses)
	if err != nil {
		fatalf("aggregate daily counts: %v", err)
	}

	if err := writeDataset(*outPath, offenses, rows, totals); err != nil {
		fatalf("write dataset: %v", err)
	}

	fmt.Printf("Wrote %d (neighborhood, date) rows x %d offense columns to %s\n",
		len(totals), len(offenses), *outPath)
}

// topOffenses returns the N most frequent offense descriptions, the columns
// of the exported dataset.
func topOffenses(ctx context.Context, db *sql.DB, n int) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ofns_desc
		FROM complaints
		WHERE ofns_desc <> ''
		GROUP BY ofns_desc
		ORDER BY COUNT(*) DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// dailyCounts aggregates complaints by (neighborhood, complaint date,
// offense). Rows without a neighborhood or a complaint date carry no signal
// for the per-neighborhood daily forecast and are excluded.
func dailyCounts(ctx context.Context, db *sql.DB, offenses []string) (map[cell]map[string]int, map[cell]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT n.name, c.cmplnt_fr_dt::date, c.ofns_desc, COUNT(*)
		FROM complaints c
		JOIN neighborhoods n ON n.id = c.neighborhood_id
		WHERE c.cmplnt_fr_dt IS NOT NULL AND c.ofns_desc = ANY($1)
		GROUP BY n.name, c.cmplnt_fr_dt::date, c.ofns_desc
		ORDER BY n.name, c.cmplnt_fr_dt::date
	`, pq.Array(offenses))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	perOffense := make(map[cell]map[string]int)
	totals := make(map[cell]int)
	for rows.Next() {
		var (
			name  string
			date  time.Time
			ofns  string
			count int
		)
		if err := rows.Scan(&name, &date, &ofns, &count); err != nil {
			return nil, nil, err
		}
		c := cell{neighborhood: name, date: date.Format("2006-01-02")}
		if perOffense[c] == nil {
			perOffense[c] = make(map[string]int)
		}
		perOffense[c][ofns] += count
		totals[c] += count
	}
	return perOffense, totals, rows.Err()
}

func writeDataset(path string, offenses []string, rows map[cell]map[string]int, totals map[cell]int) error {
	cells := make([]cell, 0, len(totals))
	for c := range totals {
		cells = append(cells, c)
	}
	// Chronological within neighborhood: the models split train/validation
	// chronologically, so the export preserves that order.
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].neighborhood != cells[j].neighborhood {
			return cells[i].neighborhood < cells[j].neighborhood
		}
		return cells[i].date < cells[j].date
	})

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(bufio.NewWriter(f))
	header := append([]string{"NEIGHBORHOOD", "DATE", "TOTAL"}, offenses...)
	if err := w.Write(header); err != nil {
		return err
	}

	for _, c := range cells {
		row := make([]string, 0, len(header))
		row = append(row, c.neighborhood, c.date, strconv.Itoa(totals[c]))
		for _, o := range offenses {
			row = append(row, strconv.Itoa(rows[c][o]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
