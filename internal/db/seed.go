package db

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Seed inserts demo data: a small vendor pool with playlists, a few active
// campaigns and a week of lifetime delivery samples. Intended for local runs
// only; all inserts are ON CONFLICT DO NOTHING so reseeding is harmless.
func Seed(ctx context.Context, db *pgxpool.Pool) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	vendors := []struct {
		id            int64
		name          string
		maxDaily      int64
		maxConcurrent int
		costPer1k     int64
	}{
		{1, "Playlist Push", 40000, 5, 500},  // 5.00 per 1k
		{2, "StreamLift", 80000, 8, 800},     // 8.00 per 1k
		{3, "Viral Sounds", 25000, 3, 650},   // 6.50 per 1k
		{4, "Indie Curators", 15000, 4, 450}, // 4.50 per 1k
	}
	for _, v := range vendors {
		_, err := db.Exec(ctx, `INSERT INTO vendors
    (id, name, max_daily_streams, max_concurrent_campaigns, cost_per_1k_streams, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,true,now(),now()) ON CONFLICT DO NOTHING`,
			v.id, v.name, v.maxDaily, v.maxConcurrent, v.costPer1k)
		if err != nil {
			return err
		}

		// two or three playlists per vendor
		genres := [][]string{{"pop", "dance"}, {"hip-hop", "rap"}, {"indie", "rock"}, {"electronic"}}
		count := 2 + r.Intn(2)
		for j := 1; j <= count; j++ {
			plID := v.id*10 + int64(j)
			_, err = db.Exec(ctx, `INSERT INTO playlists
    (id, vendor_id, name, avg_daily_streams, genres, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,now(),now()) ON CONFLICT DO NOTHING`,
				plID, v.id, fmt.Sprintf("%s Mix %d", v.name, j),
				v.maxDaily/int64(count), genres[r.Intn(len(genres))])
			if err != nil {
				return err
			}
		}
	}

	for i := int64(1); i <= 3; i++ {
		start := time.Now().AddDate(0, 0, -7)
		_, err := db.Exec(ctx, `INSERT INTO campaigns
    (id, name, goal, budget, start_date, duration_days, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,'active',now(),now()) ON CONFLICT DO NOTHING`,
			i, fmt.Sprintf("Campaign %d", i), int64(100000), int64(100000), start, 30)
		if err != nil {
			return err
		}

		// a week of lifetime samples against the two biggest vendors
		for day := 7; day >= 1; day-- {
			observed := time.Now().AddDate(0, 0, -day)
			for _, vendorID := range []int64{1, 2} {
				streams := int64((8-day)*3000 + r.Intn(1000))
				_, err = db.Exec(ctx, `INSERT INTO delivery_samples
    (campaign_id, vendor_id, playlist_id, sample_window, actual_streams, observed_at)
VALUES ($1,$2,NULL,'lifetime',$3,$4) ON CONFLICT DO NOTHING`,
					i, vendorID, streams, observed)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}
