package surveilans

type Option interface {
	apply(*Harvester) error
}

type harvesterOptionFunc func(*Harvester) error

func (f harvesterOptionFunc) apply(h *Harvester) error {
	return f(h)
}

// ID sets the run identifier attached to logs and the summary.
func ID(id string) Option {
	return harvesterOptionFunc(func(h *Harvester) error {
		h.ID = getOrDefault(&id, h.ID)
		return nil
	})
}

// Name sets a human name for the harvester.
func Name(name string) Option {
	return harvesterOptionFunc(func(h *Harvester) error {
		h.logger.Debug("Apply configuration: name", LogContext{"value": name})
		h.Name = name
		return nil
	})
}

func WithLogger(logger Logger) Option {
	return harvesterOptionFunc(func(h *Harvester) error {
		h.logger = logger
		return nil
	})
}

func WithMetrics(m *Metrics) Option {
	return harvesterOptionFunc(func(h *Harvester) error {
		h.metrics = m
		return nil
	})
}

// Regencies narrows the crawl to the given regencies, in the given order.
func WithRegencies(r ...Regency) Option {
	return harvesterOptionFunc(func(h *Harvester) error {
		h.logger.Debug("Apply configuration: regencies", LogContext{"value": r})
		h.regencies = append([]Regency(nil), r...)
		return nil
	})
}

func WithStatuses(s ...Status) Option {
	return harvesterOptionFunc(func(h *Harvester) error {
		h.statuses = append([]Status(nil), s...)
		return nil
	})
}

func WithAgeGroups(a ...AgeGroup) Option {
	return harvesterOptionFunc(func(h *Harvester) error {
		h.ageGroups = append([]AgeGroup(nil), a...)
		return nil
	})
}

func WithSexes(s ...Sex) Option {
	return harvesterOptionFunc(func(h *Harvester) error {
		h.sexes = append([]Sex(nil), s...)
		return nil
	})
}
