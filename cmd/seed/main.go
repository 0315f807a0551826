// Command seed loads a demo workspace and a large set of links for local
// runs and load tests.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"

	"github.com/gamassss/click-tracker/internal/config"
	"github.com/gamassss/click-tracker/internal/logger"
	"github.com/gamassss/click-tracker/internal/repository/postgres/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	workspaceID = "ws_demo"
	linkDomain  = "dub.sh"

	batchSize = 5000
)

type Seeder struct {
	pool *pgxpool.Pool
}

func main() {
	links := flag.Int("links", 100000, "number of plain links to generate")
	workers := flag.Int("workers", 4, "parallel insert workers")
	reset := flag.Bool("reset", false, "truncate tracking tables first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	appLog := logger.Get()

	m, err := migrations.New(cfg.Database.URL, appLog)
	if err != nil {
		log.Fatalf("Unable to open migrations: %v", err)
	}
	if err := m.Up(); err != nil {
		log.Fatalf("Unable to migrate: %v", err)
	}
	_ = m.Close()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	s := &Seeder{pool: pool}

	if *reset {
		if err := s.clearData(ctx); err != nil {
			log.Fatalf("Failed to clear data: %v\n", err)
		}
	}

	if err := s.insertWorkspace(ctx); err != nil {
		log.Fatalf("Failed to insert workspace: %v\n", err)
	}

	if err := s.insertLinksParallel(ctx, *links, *workers); err != nil {
		log.Fatalf("Failed to insert links: %v\n", err)
	}

	if _, err := pool.Exec(ctx, "ANALYZE links"); err != nil {
		log.Printf("Warning: analyze failed: %v\n", err)
	}

	var count int64
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM links WHERE workspace_id = $1", workspaceID).Scan(&count); err != nil {
		log.Printf("Warning: count failed: %v\n", err)
	}

	appLog.Info("Seed complete", "workspace_id", workspaceID, "links", count)
}

func (s *Seeder) clearData(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		TRUNCATE click_events, links, program_enrollments, programs, discounts,
			partners, domains, workspaces RESTART IDENTITY CASCADE`)
	return err
}

// insertWorkspace creates the demo workspace with a partner program so both
// plain and partner links can be tracked.
func (s *Seeder) insertWorkspace(ctx context.Context) error {
	batch := &pgx.Batch{}

	batch.Queue(`INSERT INTO workspaces (id, name, allowed_hostnames)
		VALUES ($1, 'Demo', ARRAY['localhost', '*.acme.com'])
		ON CONFLICT (id) DO NOTHING`, workspaceID)
	batch.Queue(`INSERT INTO domains (id, slug, workspace_id, verified)
		VALUES ('dom_demo', $1, $2, true)
		ON CONFLICT (id) DO NOTHING`, linkDomain, workspaceID)
	batch.Queue(`INSERT INTO partners (id, name, image)
		VALUES ('pn_demo', 'Demo Partner', NULL)
		ON CONFLICT (id) DO NOTHING`)
	batch.Queue(`INSERT INTO discounts (id, amount, type, max_duration, coupon_id)
		VALUES ('disc_demo', 20, 'percentage', 12, 'DEMO20')
		ON CONFLICT (id) DO NOTHING`)
	batch.Queue(`INSERT INTO programs (id, workspace_id, name, default_discount_id)
		VALUES ('prog_demo', $1, 'Demo Affiliates', 'disc_demo')
		ON CONFLICT (id) DO NOTHING`, workspaceID)
	batch.Queue(`INSERT INTO program_enrollments (id, program_id, partner_id)
		VALUES ('pe_demo', 'prog_demo', 'pn_demo')
		ON CONFLICT (id) DO NOTHING`)
	batch.Queue(`INSERT INTO links (id, domain, key, url, workspace_id, program_id, partner_id)
		VALUES ('link_partner', $1, 'partner', 'https://acme.com', $2, 'prog_demo', 'pn_demo')
		ON CONFLICT (domain, key) DO NOTHING`, linkDomain, workspaceID)

	return s.pool.SendBatch(ctx, batch).Close()
}

func (s *Seeder) insertLinksParallel(ctx context.Context, total, workers int) error {
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	errChan := make(chan error, workers)

	rowsPerWorker := total / workers

	for workerID := 0; workerID < workers; workerID++ {
		start := workerID*rowsPerWorker + 1
		end := start + rowsPerWorker - 1
		if workerID == workers-1 {
			end = total
		}
		if start > end {
			continue
		}

		wg.Add(1)
		go func(id, start, end int) {
			defer wg.Done()

			if err := s.insertLinks(ctx, start, end); err != nil {
				errChan <- fmt.Errorf("worker %d failed: %w", id, err)
			}
		}(workerID, start, end)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		return err
	}

	return nil
}

func (s *Seeder) insertLinks(ctx context.Context, start, end int) error {
	for i := start; i <= end; i += batchSize {
		batchEnd := min(i+batchSize-1, end)

		batch := &pgx.Batch{}
		for j := i; j <= batchEnd; j++ {
			batch.Queue(
				`INSERT INTO links (id, domain, key, url, workspace_id)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (domain, key) DO NOTHING`,
				fmt.Sprintf("link_%07d", j),
				linkDomain,
				fmt.Sprintf("k%07d", j),
				fmt.Sprintf("https://example.com/page/%07d", j),
				workspaceID,
			)
		}

		if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("batch exec failed: %w", err)
		}
	}

	return nil
}
