//go:build !pollfallback

package poller

func defaultBackend(timers *TimerPool) backend {
	return newKqueueBackend(timers)
}
