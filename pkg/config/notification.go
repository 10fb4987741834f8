package config

type NotificationsConfig struct {
	Detailed     bool                `koanf:"detailed"`
	SkipEmptyRun bool                `koanf:"skip_empty_run"`
	Service      NotificationService `koanf:"service"`
}

type NotificationService struct {
	Discord string `koanf:"discord"`
}
