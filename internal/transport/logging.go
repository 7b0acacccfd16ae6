// SPDX-License-Identifier: MIT
package transport

import (
	applog "audiolink/internal/log"
)

// LoggingTransport writes events to the application log. Status and
// message events are logged at Info, live analysis data at Debug.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

func (lt *LoggingTransport) Send(data any) error {
	ev, ok := data.(Event)
	if !ok {
		applog.Debugf("Transport: %T %+v", data, data)
		return nil
	}
	switch ev.Kind {
	case KindStatus:
		applog.Infof("Status: %s", ev.Status)
	case KindMessage:
		if ev.Code != "" {
			applog.Warnf("Message [%s]: %s", ev.Code, ev.Message)
		} else {
			applog.Infof("Message: %s", ev.Message)
		}
	case KindPeak:
		applog.Debugf("Peak: %.2f Hz", ev.PeakHz)
	case KindSpectrum:
		applog.Debugf("Spectrum: %d bins %s..%s Hz, peak %.2f Hz", len(ev.Spectrum), ev.MinLabel, ev.MaxLabel, ev.PeakHz)
	}
	return nil
}

func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
