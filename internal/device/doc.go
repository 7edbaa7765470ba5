// Package device is the registry of iNels devices seen by the bridge.
//
// Devices are keyed by <serial>-<uid>, the ID the bridge derives from the
// gateway status topic. The registry persists them in SQLite together with
// their last state, health and a state history, so previous values survive
// restarts and the REST API can serve them.
//
//	┌──────────────┐     ┌──────────────────┐     ┌───────────────┐
//	│ inels.Bridge │────▶│     Registry     │────▶│ SQLiteRepo    │
//	│ REST API     │     │ (cache, copies)  │     │ devices table │
//	└──────────────┘     └──────────────────┘     └───────────────┘
//	                              │
//	                              ▼
//	                     ┌──────────────────┐
//	                     │ StateHistoryRepo │  state_history table
//	                     └──────────────────┘
//
// Usage:
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	registry.SetDeviceState(ctx, "4254524524-452454", device.State{"on": true})
//
// The Registry is safe for concurrent use; devices it returns are deep
// copies of the cached entries.
package device
