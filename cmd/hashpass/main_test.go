package main

import (
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"

	"github.com/okian/festboard/internal/adapters/http/auth"
)

func TestHashFrom(t *testing.T) {
	convey.Convey("Given a password on stdin", t, func() {
		hash, err := hashFrom(strings.NewReader("correct horse\n"))
		convey.So(err, convey.ShouldBeNil)
		convey.So(bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")), convey.ShouldBeNil)
	})

	convey.Convey("Given an empty stdin", t, func() {
		_, err := hashFrom(strings.NewReader(""))
		convey.So(err, convey.ShouldEqual, auth.ErrEmptyPassword)
	})
}
