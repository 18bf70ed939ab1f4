package config

import "time"

type Client struct{}

var _ ClientConfig = Client{}

// GetLocalSessionWindow is the absolute lifetime of a session as tracked by the client,
// independent of the provider's token expiry.
func (Client) GetLocalSessionWindow() time.Duration {
	return 4 * time.Hour
}

func (Client) GetRefreshThreshold() time.Duration {
	return 5 * time.Minute
}

func (Client) GetInitTimeout() time.Duration {
	return 2 * time.Second
}

func (Client) GetAdminFetchTimeout() time.Duration {
	return 10 * time.Second
}

func (Client) GetLivenessInterval() time.Duration {
	return 60 * time.Second
}
