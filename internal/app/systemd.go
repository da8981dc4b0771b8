package app

import (
	"github.com/coreos/go-systemd/v22/daemon"

	logx "hwbot/pkg/logx"
)

// sdNotify reports state to systemd. Outside a Type=notify unit
// (NOTIFY_SOCKET unset) it does nothing.
func sdNotify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	switch {
	case err != nil:
		log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
	case sent:
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}
