package mock

import (
	"context"
	"math/rand"
	"time"

	"github.com/BearBump/ShipSight/internal/integrations/feed"
)

// Source — синтетический источник: один равномерно случайный элемент корпуса
// за цикл. В режиме preclassified наблюдение уже несёт категорию (имитация
// размеченного трафика), иначе только сырой текст статуса.
type Source struct {
	corpus        []feed.Observation
	preclassified bool
	r             *rand.Rand
}

func New(corpusSize int, preclassified bool) *Source {
	if corpusSize <= 0 {
		corpusSize = 800
	}
	seed := time.Now().UnixNano()
	return &Source{
		corpus:        Corpus(corpusSize, seed),
		preclassified: preclassified,
		r:             rand.New(rand.NewSource(seed)),
	}
}

func newWithSeed(corpusSize int, preclassified bool, seed int64) *Source {
	return &Source{
		corpus:        Corpus(corpusSize, seed),
		preclassified: preclassified,
		r:             rand.New(rand.NewSource(seed)),
	}
}

func (s *Source) Fetch(ctx context.Context) ([]feed.Observation, error) {
	obs := s.corpus[s.r.Intn(len(s.corpus))]
	obs.Timestamp = time.Now().UTC()
	if !s.preclassified {
		obs.Status = ""
		obs.Reason = ""
	}
	return []feed.Observation{obs}, nil
}
