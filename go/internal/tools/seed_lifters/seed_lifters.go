package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/liftcontrol/go/internal/config"
	"github.com/mcdev12/liftcontrol/go/internal/dbconfig"
)

// Seeds the lifters table from a competition file without touching lifters
// that already exist, e.g. before the first platform starts:
//
//	go run ./go/internal/tools/seed_lifters competition.yaml
func main() {
	path := "competition.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the competition
	comp, err := config.LoadCompetition(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load competition: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	poolCfg, err := cfg.PoolConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert and count
	var total, inserted, skipped, errs int

	for _, gc := range comp.Groups {
		g, err := comp.Group(gc.Name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "group %s: %v\n", gc.Name, err)
			errs++
			continue
		}
		for _, l := range g.Lifters {
			total++
			attempts, err := json.Marshal(l.Attempts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "encode attempts of %s: %v\n", l.FullName(), err)
				errs++
				continue
			}
			cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO lifters (
              id, group_name, first_name, last_name, team,
              lot_number, body_weight, attempts
            ) VALUES (
              $1,$2,$3,$4,$5,$6,$7,$8
            )
            ON CONFLICT (id) DO NOTHING
        `,
				l.ID, l.GroupName, l.FirstName, l.LastName, l.Team,
				l.LotNumber, l.BodyWeight, attempts,
			)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error inserting lifter %s: %v\n", l.FullName(), err)
				errs++
				continue
			}
			if cmdTag.RowsAffected() == 1 {
				inserted++
			} else {
				skipped++
			}
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Lifters seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
