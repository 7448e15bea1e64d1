package tokens

import (
	"testing"
	"time"

	"github.com/fsdevblog/printahead/internal/domain"
	"github.com/stretchr/testify/suite"
)

type TokensTestSuite struct {
	suite.Suite
	key []byte
}

func TestTokensSuite(t *testing.T) {
	suite.Run(t, new(TokensTestSuite))
}

func (s *TokensTestSuite) SetupTest() {
	s.key = []byte("secret")
}

func (s *TokensTestSuite) TestRoundTrip() {
	token, err := GenerateUserJWT("user-1", domain.RoleAdmin, time.Hour, s.key)
	s.Require().NoError(err)

	claims, err := ValidateUserJWT(token, s.key)
	s.Require().NoError(err)
	s.Equal("user-1", claims.ID)
	s.True(claims.IsAdmin())
}

func (s *TokensTestSuite) TestInvalid() {
	expired, err := GenerateUserJWT("user-1", domain.RoleCustomer, -time.Minute, s.key)
	s.Require().NoError(err)
	_, err = ValidateUserJWT(expired, s.key)
	s.Require().ErrorIs(err, ErrTokenExpired)

	token, err := GenerateUserJWT("user-1", domain.RoleCustomer, time.Hour, s.key)
	s.Require().NoError(err)
	_, err = ValidateUserJWT(token, []byte("another"))
	s.Require().Error(err)
}
