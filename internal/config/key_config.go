package config

import "time"

const defaultDownloadSecret = "change-me-download-secret"

type Keys struct {
	src *Source
}

var _ KeyConfig = Keys{}

func (k Keys) GetMaxKeysPerDay() int {
	return k.src.Int("MAX_KEYS_PER_DAY", 5)
}

func (k Keys) GetVerificationTokenLifespan() time.Duration {
	return time.Duration(k.src.Int("VERIFICATION_TOKEN_LIFESPAN_SEC", 5*60)) * time.Second
}

func (k Keys) GetDownloadSecret() string {
	return k.src.Get("DOWNLOAD_SECRET", defaultDownloadSecret)
}

// IsDefaultDownloadSecret reports whether the download secret was left at its placeholder.
func (k Keys) IsDefaultDownloadSecret() bool {
	return k.GetDownloadSecret() == defaultDownloadSecret
}

func (k Keys) GetDownloadURL() string {
	return k.src.Get("DOWNLOAD_URL", "https://github.com/MRLuke956/ModMenuCrew/releases/download/Mod/BepInEx-Unity.IL2CPP-win-x86-6.0.0-be.674+82077ec.zip")
}

func (k Keys) GetDownloadExpiry() time.Duration {
	return time.Duration(k.src.Int("DOWNLOAD_EXPIRY_SEC", 10*60)) * time.Second
}
