package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"gadget-grove/internal/cache"
	"gadget-grove/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// memoryRepository is an in-memory ProductRepository that counts calls.
type memoryRepository struct {
	products  map[primitive.ObjectID]*domain.Product
	listCalls int
	findCalls int
	failNext  error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{products: make(map[primitive.ObjectID]*domain.Product)}
}

func (m *memoryRepository) Create(ctx context.Context, product *domain.Product) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	product.ID = primitive.NewObjectID()
	m.products[product.ID] = product
	return nil
}

func (m *memoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	m.findCalls++
	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (m *memoryRepository) List(ctx context.Context) ([]*domain.Product, error) {
	m.listCalls++
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// pausingRepository parks the next List after its snapshot is taken until
// resume is closed.
type pausingRepository struct {
	*memoryRepository
	pause         sync.Once
	snapshotTaken chan struct{}
	resume        chan struct{}
}

func (p *pausingRepository) List(ctx context.Context) ([]*domain.Product, error) {
	products, err := p.memoryRepository.List(ctx)
	p.pause.Do(func() {
		close(p.snapshotTaken)
		<-p.resume
	})
	return products, err
}

func newCachedRepo(t *testing.T) (ProductRepository, *memoryRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inner := newMemoryRepository()
	return NewCachedProductRepository(inner, cache.NewRedisCache(client, time.Minute), zap.NewNop()), inner, mr
}

func TestCachedProductRepository_ListIsServedFromCache(t *testing.T) {
	repo, inner, _ := newCachedRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Product{Name: "A", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}))

	first, err := repo.List(ctx)
	require.NoError(t, err)
	second, err := repo.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.listCalls)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].Name, second[0].Name)
	assert.True(t, first[0].CreatedAt.Equal(second[0].CreatedAt))
}

func TestCachedProductRepository_CreateInvalidatesList(t *testing.T) {
	repo, inner, _ := newCachedRepo(t)
	ctx := context.Background()

	products, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NotNil(t, products)

	require.NoError(t, repo.Create(ctx, &domain.Product{Name: "B", CreatedAt: time.Now().UTC()}))

	products, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 2, inner.listCalls)
}

func TestCachedProductRepository_EmptyListFromCacheIsNotNil(t *testing.T) {
	repo, inner, _ := newCachedRepo(t)
	ctx := context.Background()

	_, err := repo.List(ctx)
	require.NoError(t, err)

	products, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Equal(t, 1, inner.listCalls)
}

func TestCachedProductRepository_FindByID(t *testing.T) {
	repo, inner, _ := newCachedRepo(t)
	ctx := context.Background()

	p := &domain.Product{
		Name:       "C",
		Price:      5,
		Attributes: map[string]interface{}{"color": "red"},
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, repo.Create(ctx, p))

	for i := 0; i < 3; i++ {
		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "C", found.Name)
		assert.Equal(t, "red", found.Attributes["color"])
	}
	assert.Equal(t, 1, inner.findCalls)
}

func TestCachedProductRepository_MissesAreNotCached(t *testing.T) {
	repo, inner, _ := newCachedRepo(t)
	ctx := context.Background()
	id := primitive.NewObjectID()

	for i := 0; i < 2; i++ {
		_, err := repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, ErrProductNotFound)
	}
	assert.Equal(t, 2, inner.findCalls)
}

func TestCachedProductRepository_CacheOutageFallsThrough(t *testing.T) {
	repo, inner, mr := newCachedRepo(t)
	ctx := context.Background()

	mr.Close()

	require.NoError(t, repo.Create(ctx, &domain.Product{Name: "D", CreatedAt: time.Now().UTC()}))

	products, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 1, inner.listCalls)
}

func TestCachedProductRepository_CreateErrorPropagates(t *testing.T) {
	repo, inner, _ := newCachedRepo(t)
	inner.failNext = errors.New("insert failed")

	err := repo.Create(context.Background(), &domain.Product{Name: "E"})
	assert.EqualError(t, err, "insert failed")
}

func TestCachedProductRepository_ListRacingCreateDoesNotPinStaleListing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inner := &pausingRepository{
		memoryRepository: newMemoryRepository(),
		snapshotTaken:    make(chan struct{}),
		resume:           make(chan struct{}),
	}
	repo := NewCachedProductRepository(inner, cache.NewRedisCache(client, time.Minute), zap.NewNop())
	ctx := context.Background()

	type listResult struct {
		products []*domain.Product
		err      error
	}
	done := make(chan listResult, 1)
	go func() {
		products, err := repo.List(ctx)
		done <- listResult{products, err}
	}()

	<-inner.snapshotTaken
	require.NoError(t, repo.Create(ctx, &domain.Product{Name: "Phone", Price: 499, Category: "Electronics", CreatedAt: time.Now().UTC()}))
	close(inner.resume)

	slow := <-done
	require.NoError(t, slow.err)
	assert.Empty(t, slow.products)

	products, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1, "listing after a completed create must include it")
	assert.Equal(t, "Phone", products[0].Name)
}

func TestCachedProductRepository_CreateDropsSupersededListing(t *testing.T) {
	repo, _, mr := newCachedRepo(t)
	ctx := context.Background()

	_, err := repo.List(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(listKey(0)))

	require.NoError(t, repo.Create(ctx, &domain.Product{Name: "F", CreatedAt: time.Now().UTC()}))

	assert.False(t, mr.Exists(listKey(0)))
	gen, err := mr.Get(listGenerationKey)
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
}
