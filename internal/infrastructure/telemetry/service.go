package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	namespace = "walletd"

	// DefaultBufferSize is the number of anomalies queued before new ones get
	// dropped.
	DefaultBufferSize = 64
)

type anomaly struct {
	message string
	fields  map[string]interface{}
}

// Service is the anomaly sink. Anomalies are logged and counted by a
// background worker so that reporting never blocks the caller.
type Service struct {
	anomalies *prometheus.CounterVec
	dropped   prometheus.Counter

	lock   sync.RWMutex
	closed bool
	queue  chan anomaly
	wg     sync.WaitGroup
}

// NewService registers the anomaly counters to the given registerer and
// starts the worker.
func NewService(
	registerer prometheus.Registerer, bufferSize int,
) (*Service, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	anomalies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "anomalies_total",
		Help:      "Number of anomalies reported, by message.",
	}, []string{"anomaly"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "anomalies_dropped_total",
		Help:      "Number of anomalies dropped because the queue was full.",
	})
	for _, c := range []prometheus.Collector{anomalies, dropped} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	s := &Service{
		anomalies: anomalies,
		dropped:   dropped,
		queue:     make(chan anomaly, bufferSize),
	}
	s.wg.Add(1)
	go s.listen()
	return s, nil
}

func (s *Service) ReportAnomaly(message string, fields map[string]interface{}) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.closed {
		return
	}

	copied := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		copied[k] = v
	}

	select {
	case s.queue <- anomaly{message, copied}:
	default:
		s.dropped.Inc()
		log.WithField("anomaly", message).Debug("telemetry queue full, dropping anomaly")
	}
}

// Close stops accepting anomalies and waits for the queued ones to be
// processed.
func (s *Service) Close() {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.lock.Unlock()

	s.wg.Wait()
}

func (s *Service) listen() {
	defer s.wg.Done()

	for a := range s.queue {
		s.anomalies.WithLabelValues(a.message).Inc()
		log.WithFields(a.fields).WithField("anomaly", a.message).Warn("anomaly reported")
	}
}
