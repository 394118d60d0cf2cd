/*
Copyright © 2024 The predictdash Authors.

Released under MIT license.
*/

// Package bot contains the demo trading bot: a process-wide running flag with the selected strategy
// and a periodic momentum check that logs buy and sell signals. No orders are placed.
package bot
