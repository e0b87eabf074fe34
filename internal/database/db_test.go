package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsDSN(t *testing.T) {
	p := Params{User: "app", Pass: "s3cret", Host: "db", Port: "3306", Name: "volonterko"}
	assert.Equal(t,
		"app:s3cret@tcp(db:3306)/volonterko?charset=utf8mb4&parseTime=true&loc=UTC",
		p.DSN())
}

func TestParamsDSNWithoutPassword(t *testing.T) {
	p := Params{User: "root", Host: "127.0.0.1", Port: "3306", Name: "volonterko"}
	assert.Equal(t,
		"root@tcp(127.0.0.1:3306)/volonterko?charset=utf8mb4&parseTime=true&loc=UTC",
		p.DSN())
}

func TestParamsDSNEscapesCredentials(t *testing.T) {
	p := Params{User: "app", Pass: "p@ss/word", Host: "db", Port: "3306", Name: "volonterko"}
	assert.Equal(t,
		"app:p%40ss%2Fword@tcp(db:3306)/volonterko?charset=utf8mb4&parseTime=true&loc=UTC",
		p.DSN())
}
