package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/smartystreets/goconvey/convey"
)

func signedToken(exp *time.Time) string {
	claims := jwt.RegisteredClaims{Subject: "u-1"}
	if exp != nil {
		claims.ExpiresAt = jwt.NewNumericDate(*exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		panic(err)
	}
	return token
}

func TestLoadAndSave(t *testing.T) {
	Convey("Given a session file path", t, func() {
		path := filepath.Join(t.TempDir(), "session.yaml")

		Convey("When the file does not exist", func() {
			s, err := Load(path)

			Convey("Then an empty session is returned", func() {
				So(err, ShouldBeNil)
				So(s.Token(), ShouldEqual, "")
				So(s.Snapshot(), ShouldResemble, Data{})
			})
		})

		Convey("When a session is saved and loaded again", func() {
			s := New(Data{
				Token:    "abc",
				User:     User{ID: "u-1", Name: "Ayu", Role: "sales"},
				Settings: Settings{Currency: "Rp", Locale: "id", LeaderboardLimit: 20},
			})
			So(s.Save(path), ShouldBeNil)

			loaded, err := Load(path)

			Convey("Then every field round-trips", func() {
				So(err, ShouldBeNil)
				So(loaded.Snapshot(), ShouldResemble, s.Snapshot())
			})

			Convey("Then the file is private to the owner", func() {
				info, err := os.Stat(path)
				So(err, ShouldBeNil)
				So(info.Mode().Perm(), ShouldEqual, os.FileMode(0o600))
			})
		})

		Convey("When the file is not valid YAML", func() {
			So(os.WriteFile(path, []byte("token: [unclosed"), 0o600), ShouldBeNil)

			_, err := Load(path)

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestAccessors(t *testing.T) {
	Convey("Given a session", t, func() {
		s := New(Data{Token: "t1"})

		Convey("When the token and settings are updated", func() {
			s.SetToken("t2")
			s.UpdateSettings(func(st *Settings) { st.LeaderboardLimit = 5 })

			Convey("Then readers see the new values", func() {
				So(s.Token(), ShouldEqual, "t2")
				So(s.Settings().LeaderboardLimit, ShouldEqual, 5)
				So(s.User(), ShouldResemble, User{})
			})
		})
	})
}

func TestTokenExpiry(t *testing.T) {
	Convey("Given tokens with different exp claims", t, func() {
		now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

		Convey("When the token expires in the future", func() {
			exp := now.Add(time.Hour)
			s := New(Data{Token: signedToken(&exp)})

			Convey("Then the expiry is read without the signing key", func() {
				got, err := s.TokenExpiry()
				So(err, ShouldBeNil)
				So(got.Equal(exp), ShouldBeTrue)
				So(s.Expired(now), ShouldBeFalse)
				So(s.Expired(exp), ShouldBeTrue)
			})
		})

		Convey("When the token has no exp claim", func() {
			s := New(Data{Token: signedToken(nil)})

			Convey("Then it never expires", func() {
				_, err := s.TokenExpiry()
				So(err, ShouldEqual, ErrNoExpiry)
				So(s.Expired(now), ShouldBeFalse)
			})
		})

		Convey("When the token is missing or malformed", func() {
			Convey("Then the session counts as expired", func() {
				_, err := New(Data{}).TokenExpiry()
				So(err, ShouldEqual, ErrNoToken)
				So(New(Data{}).Expired(now), ShouldBeTrue)
				So(New(Data{Token: "not-a-jwt"}).Expired(now), ShouldBeTrue)
			})
		})
	})
}
