package inventory

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Open selects the PostgreSQL backend when databaseURL is set and the JSON file backend in
// dataFolder otherwise.
func Open(ctx context.Context, databaseURL, dataFolder string) (Repo, error) {
	if databaseURL == "" {
		log.Info().Str("folder", dataFolder).Msg("DATABASE_URL not set, keeping documents in JSON files")
		return NewFileRepo(dataFolder)
	}
	repo, err := ConnectPostgres(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("connected to postgres")
	return repo, nil
}
