package properties

import (
	"os"
	"path/filepath"
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

func DatabasePath() string {
	if p := os.Getenv("DATABASE_PATH"); p != "" {
		return p
	}
	return filepath.Join(RootPath(), "data", "field-guardian.db")
}

func FieldsPath() string {
	return filepath.Join(RootPath(), "data", "fields")
}

func ScenesPath() string {
	return filepath.Join(RootPath(), "data", "scenes")
}

func ArchiveClientID() string {
	return os.Getenv("ARCHIVE_CLIENT_ID")
}

func ArchiveClientSecret() string {
	return os.Getenv("ARCHIVE_CLIENT_SECRET")
}

func ArchiveTokenURL() string {
	return os.Getenv("ARCHIVE_TOKEN_URL")
}

func ArchiveAPIURL() string {
	return os.Getenv("ARCHIVE_API_URL")
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}
