// Package cliploop provides a Twitch clip auto-play session: broadcaster
// search, a filtered and sorted clip queue paged in from the Helix
// catalog, and timed playback advancement reconciled with untrusted
// player reports.
//
// Overview
//
// The system is split into small packages:
//
//   - twitch: Helix catalog client (broadcaster search, paged clip listing)
//   - autoplay: filter engine, clip queue, advancement timer, and the
//     session controller that ties them together
//   - player: parser for the loosely-typed embed player messages
//   - web: HTTP bridge between the embed page and the controller
//   - storage: watch-history persistence
//   - config: configuration management
//
// Quick Start
//
// Drive a session programmatically:
//
//	creds, err := twitch.NewAppTokenSource(clientID, clientSecret, "", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	cfg := twitch.DefaultConfig()
//	cfg.ClientID = clientID
//	client, err := twitch.NewClient(cfg, creds)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctrl := autoplay.New(client, creds, autoplay.DefaultControllerConfig())
//	ctrl.Start(context.Background())
//	defer ctrl.Close()
//
//	ctrl.Search("k4sen")
//	snap := ctrl.Snapshot()
//	if snap.Current != nil {
//		fmt.Println(snap.Current.Title)
//	}
//
// Configuration
//
// cliploop uses a configuration system that loads settings from multiple sources:
//
//   1. Environment variables (highest priority)
//   2. Config file (cliploop.json or ~/.config/cliploop/cliploop.json)
//   3. Default values (lowest priority)
//
// Environment variables:
//
//   - CLIPLOOP_CLIENT_ID: Twitch application client id
//   - CLIPLOOP_CLIENT_SECRET: Twitch application client secret
//   - CLIPLOOP_LISTEN_ADDR: HTTP bridge bind address
//   - CLIPLOOP_EMBED_PARENT: hostname for the clip embed parent parameter
//   - CLIPLOOP_LEAD: lead time subtracted from the nominal clip duration
//   - CLIPLOOP_AUTO_ADVANCE: initial auto-advance setting (true/false)
//   - CLIPLOOP_HISTORY_PATH: watch-history JSON file (empty disables)
//
// Error Handling
//
// All operations return errors that implement standard Go error handling:
//
// Checking for sentinel errors:
//
//	if errors.Is(err, cliploop.ErrReauthRequired) {
//		fmt.Println("credentials expired")
//	}
//
// Extracting wrapped error details:
//
//	var apiErr *cliploop.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("catalog returned %d: %s\n", apiErr.StatusCode, apiErr.Message)
//	}
package cliploop
