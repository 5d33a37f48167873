package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates in-memory metrics counters and gauges for HTTP requests,
// playback lifecycle events, streamed byte volume, range-request decisions,
// watch-progress updates, authentication events, and datastore health. It
// coordinates concurrent writers via a RWMutex while exposing thread-safe
// gauges for active playback tracking.
type Recorder struct {
	mu               sync.RWMutex
	requestCount     map[requestLabel]uint64
	requestDuration  map[requestLabel]time.Duration
	playbackEvents   map[string]uint64
	rangeDecisions   map[string]uint64
	progressUpdates  map[string]uint64
	authEvents       map[string]uint64
	storeHealthValue map[string]float64
	storeHealthState map[string]string
	activePlaybacks  atomic.Int64
	streamedBytes    atomic.Int64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers can
// immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:     make(map[requestLabel]uint64),
		requestDuration:  make(map[requestLabel]time.Duration),
		playbackEvents:   make(map[string]uint64),
		rangeDecisions:   make(map[string]uint64),
		progressUpdates:  make(map[string]uint64),
		authEvents:       make(map[string]uint64),
		storeHealthValue: make(map[string]float64),
		storeHealthState: make(map[string]string),
	}
}

// Default returns the singleton Recorder instance shared across helper
// functions for packages that do not require custom instrumentation pipelines.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by HTTP method, normalized path, and
// status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// PlaybackStarted records a playback start event and increments the active
// playback gauge atomically so concurrent streams remain consistent.
func (r *Recorder) PlaybackStarted() {
	r.incrementPlaybackEvent("start")
	r.activePlaybacks.Add(1)
}

// PlaybackStopped records a playback stop event and decrements the active
// playback gauge, guarding against negative counts when concurrent updates
// race.
func (r *Recorder) PlaybackStopped() {
	r.incrementPlaybackEvent("stop")
	r.decrementGauge(&r.activePlaybacks)
}

func (r *Recorder) incrementPlaybackEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.playbackEvents[normalized]++
	r.mu.Unlock()
}

// AddStreamedBytes accumulates the number of media bytes written to clients.
func (r *Recorder) AddStreamedBytes(n int64) {
	if n <= 0 {
		return
	}
	r.streamedBytes.Add(n)
}

// ObserveRangeDecision records how a Range header was classified against a
// resource (e.g. "full", "partial", "unsatisfiable").
func (r *Recorder) ObserveRangeDecision(decision string) {
	normalized := normalizeName(decision)
	r.mu.Lock()
	r.rangeDecisions[normalized]++
	r.mu.Unlock()
}

// ObserveProgressUpdate records the outcome of a watch-progress write
// (e.g. "ok", "rejected", "error").
func (r *Recorder) ObserveProgressUpdate(result string) {
	normalized := normalizeName(result)
	r.mu.Lock()
	r.progressUpdates[normalized]++
	r.mu.Unlock()
}

// ObserveAuthEvent records authentication activity by event type
// (e.g. "login_success", "login_failure", "signup", "logout").
func (r *Recorder) ObserveAuthEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.authEvents[normalized]++
	r.mu.Unlock()
}

// ActivePlaybacks exposes the current gauge of concurrently streaming clients.
func (r *Recorder) ActivePlaybacks() int64 {
	return r.activePlaybacks.Load()
}

// StreamedBytes exposes the cumulative count of media bytes sent to clients.
func (r *Recorder) StreamedBytes() int64 {
	return r.streamedBytes.Load()
}

// SetStoreHealth normalizes datastore identifiers, maps status strings to
// numeric health values, and stores both representations for export.
func (r *Recorder) SetStoreHealth(store, status string) {
	normalizedStore := normalizeName(store)
	normalizedStatus := strings.ToLower(strings.TrimSpace(status))
	value := 0.0
	switch normalizedStatus {
	case "ok", "healthy":
		value = 1
	case "disabled":
		value = 0
	default:
		value = -1
	}
	r.mu.Lock()
	r.storeHealthValue[normalizedStore] = value
	r.storeHealthState[normalizedStore] = normalizedStatus
	r.mu.Unlock()
}

// ProgressCounts returns a copy of the watch-progress outcome counters for
// testing and reporting purposes.
func (r *Recorder) ProgressCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]uint64, len(r.progressUpdates))
	for k, v := range r.progressUpdates {
		counts[k] = v
	}
	return counts
}

// RangeDecisionCounts returns a copy of the range classification counters.
func (r *Recorder) RangeDecisionCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]uint64, len(r.rangeDecisions))
	for k, v := range r.rangeDecisions {
		counts[k] = v
	}
	return counts
}

// Reset clears all counters and gauges on the recorder. It is intended for
// test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.playbackEvents = make(map[string]uint64)
	r.rangeDecisions = make(map[string]uint64)
	r.progressUpdates = make(map[string]uint64)
	r.authEvents = make(map[string]uint64)
	r.storeHealthValue = make(map[string]float64)
	r.storeHealthState = make(map[string]string)
	r.activePlaybacks.Store(0)
	r.streamedBytes.Store(0)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting label
// sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	playbackEvents := sortedKeys(r.playbackEvents)
	rangeDecisions := sortedKeys(r.rangeDecisions)
	progressResults := sortedKeys(r.progressUpdates)
	authEvents := sortedKeys(r.authEvents)
	stores := r.sortedStores()

	fmt.Fprintln(w, "# HELP reelroom_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE reelroom_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "reelroom_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP reelroom_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE reelroom_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "reelroom_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP reelroom_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE reelroom_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "reelroom_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP reelroom_playback_events_total Playback lifecycle events by type")
	fmt.Fprintln(w, "# TYPE reelroom_playback_events_total counter")
	for _, event := range playbackEvents {
		value := r.playbackEvents[event]
		fmt.Fprintf(w, "reelroom_playback_events_total{event=\"%s\"} %d\n", event, value)
	}

	fmt.Fprintln(w, "# HELP reelroom_active_playbacks Current number of clients streaming media")
	fmt.Fprintln(w, "# TYPE reelroom_active_playbacks gauge")
	fmt.Fprintf(w, "reelroom_active_playbacks %d\n", r.activePlaybacks.Load())

	fmt.Fprintln(w, "# HELP reelroom_streamed_bytes_total Total media bytes written to clients")
	fmt.Fprintln(w, "# TYPE reelroom_streamed_bytes_total counter")
	fmt.Fprintf(w, "reelroom_streamed_bytes_total %d\n", r.streamedBytes.Load())

	fmt.Fprintln(w, "# HELP reelroom_range_decisions_total Range header classifications by outcome")
	fmt.Fprintln(w, "# TYPE reelroom_range_decisions_total counter")
	for _, decision := range rangeDecisions {
		count := r.rangeDecisions[decision]
		fmt.Fprintf(w, "reelroom_range_decisions_total{decision=\"%s\"} %d\n", decision, count)
	}

	fmt.Fprintln(w, "# HELP reelroom_progress_updates_total Watch-progress write outcomes")
	fmt.Fprintln(w, "# TYPE reelroom_progress_updates_total counter")
	for _, result := range progressResults {
		count := r.progressUpdates[result]
		fmt.Fprintf(w, "reelroom_progress_updates_total{result=\"%s\"} %d\n", result, count)
	}

	fmt.Fprintln(w, "# HELP reelroom_auth_events_total Authentication events by type")
	fmt.Fprintln(w, "# TYPE reelroom_auth_events_total counter")
	for _, event := range authEvents {
		count := r.authEvents[event]
		fmt.Fprintf(w, "reelroom_auth_events_total{event=\"%s\"} %d\n", event, count)
	}

	fmt.Fprintln(w, "# HELP reelroom_store_health Health status reported by backing stores (1=ok,0=disabled,-1=degraded)")
	fmt.Fprintln(w, "# TYPE reelroom_store_health gauge")
	for _, store := range stores {
		value := r.storeHealthValue[store]
		status := r.storeHealthState[store]
		fmt.Fprintf(w, "reelroom_store_health{store=\"%s\",status=\"%s\"} %f\n", store, status, value)
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedStores() []string {
	stores := make([]string, 0, len(r.storeHealthValue))
	for store := range r.storeHealthValue {
		stores = append(stores, store)
	}
	sort.Strings(stores)
	return stores
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
			continue
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) >= 8 {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 3
}

func (r *Recorder) decrementGauge(gauge *atomic.Int64) {
	for {
		current := gauge.Load()
		if current <= 0 {
			return
		}
		if gauge.CompareAndSwap(current, current-1) {
			return
		}
	}
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest is a helper on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// PlaybackStarted increments counters on the default recorder.
func PlaybackStarted() {
	defaultRecorder.PlaybackStarted()
}

// PlaybackStopped decrements active playbacks on the default recorder.
func PlaybackStopped() {
	defaultRecorder.PlaybackStopped()
}

// AddStreamedBytes accumulates streamed bytes on the default recorder.
func AddStreamedBytes(n int64) {
	defaultRecorder.AddStreamedBytes(n)
}

// ObserveRangeDecision records a range classification on the default recorder.
func ObserveRangeDecision(decision string) {
	defaultRecorder.ObserveRangeDecision(decision)
}

// ObserveProgressUpdate records a progress write outcome on the default recorder.
func ObserveProgressUpdate(result string) {
	defaultRecorder.ObserveProgressUpdate(result)
}

// ObserveAuthEvent records an authentication event on the default recorder.
func ObserveAuthEvent(event string) {
	defaultRecorder.ObserveAuthEvent(event)
}

// SetStoreHealth updates store health for the default recorder.
func SetStoreHealth(store, status string) {
	defaultRecorder.SetStoreHealth(store, status)
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
