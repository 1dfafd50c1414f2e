package livesync

import "context"

// AndroidRefreshStrategy implements the Android branch of spec §4.7's
// "Device refresh strategies": delegate straight to the device's own
// livesync service.
type AndroidRefreshStrategy struct {
	Service AndroidRefresher
}

// Refresh asks the device's livesync service to perform its
// package-manager-level reload. The changed file set doesn't change the
// Android strategy's behavior — the service reloads whatever was already
// transferred to disk.
func (a *AndroidRefreshStrategy) Refresh(ctx context.Context, device Device, _ []ChangedFile) error {
	return a.Service.Reload(ctx, device)
}
