package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	accessDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tts_access_denied_total",
			Help: "Количество отказов проверки прав на узел",
		},
		[]string{"required"},
	)

	speechSynthesisTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tts_speech_synthesis_total",
			Help: "Количество запросов синтеза речи по результату",
		},
		[]string{"result"},
	)

	catalogCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tts_catalog_cache_requests_total",
			Help: "Обращения к кэшу справочника голосов (hit, miss)",
		},
		[]string{"result"},
	)
)
