//go:build (linux || darwin) && pollfallback

package poller

func defaultBackend(timers *TimerPool) backend {
	return newPollBackend(timers)
}
