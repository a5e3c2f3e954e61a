package config

type Storage struct {
	src *Source
}

var _ StorageConfig = Storage{}

// GetRedisURL points at the cache backing the ephemeral store. Empty selects the in-process map.
func (s Storage) GetRedisURL() string {
	return s.src.Get("REDIS_URL", "")
}

// GetDatabaseURL is a PostgreSQL DSN for the durable inventory. Empty selects JSON files.
func (s Storage) GetDatabaseURL() string {
	return s.src.Get("DATABASE_URL", "")
}

func (s Storage) GetDataFolder() string {
	return s.src.Get("FOLDER", "./data")
}
