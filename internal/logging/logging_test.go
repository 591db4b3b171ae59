package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	e := New("market-api", "debug", "text")
	assert.Equal(t, logrus.DebugLevel, e.Logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, e.Logger.Formatter)
	assert.Equal(t, "market-api", e.Data["service"])

	e = New("market-api", "nonsense", "json")
	assert.Equal(t, logrus.InfoLevel, e.Logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, e.Logger.Formatter)
}
