package api

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MembershipChecker 由 repository.HouseholdRepository 实现
type MembershipChecker interface {
	IsMember(ctx context.Context, householdID, userID string) (bool, error)
}

// CachedMembership 缓存成员关系的正向结果；非成员不缓存，刚加入的用户无需等待过期
type CachedMembership struct {
	next  MembershipChecker
	cache *expirable.LRU[string, struct{}]
}

func NewCachedMembership(next MembershipChecker, size int, ttl time.Duration) *CachedMembership {
	return &CachedMembership{
		next:  next,
		cache: expirable.NewLRU[string, struct{}](size, nil, ttl),
	}
}

func (m *CachedMembership) IsMember(ctx context.Context, householdID, userID string) (bool, error) {
	key := householdID + "/" + userID
	if _, ok := m.cache.Get(key); ok {
		return true, nil
	}
	ok, err := m.next.IsMember(ctx, householdID, userID)
	if err != nil || !ok {
		return false, err
	}
	m.cache.Add(key, struct{}{})
	return true, nil
}
