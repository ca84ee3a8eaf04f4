package mcmc

import (
	"log"
	"sync"

	"golang.org/x/exp/rand"
)

// Sampler runs several independent NUTS chains over a model and
// collects their draws.  Each chain has its own RNG and adapts its
// step size during warmup; chains run concurrently in goroutines.
type Sampler struct {
	model GradModel

	chains       int
	warmup       int
	draws        int
	seed         uint64
	maxDepth     int
	targetAccept float64
	initialEps   float64
	jitter       float64

	logger *log.Logger
}

// ChainResult holds the output of one chain.
type ChainResult struct {

	// Draws[i] is the packed parameter vector of draw i.
	Draws [][]float64

	// Stats[i] describes the transition that produced draw i.
	Stats []StepStats

	// WarmupStats describes the warmup transitions.
	WarmupStats []StepStats
}

// Result holds the output of all chains.
type Result struct {
	Chains []ChainResult
}

// NewSampler begins the definition of a sampling run.  Defaults: 4
// chains, 1000 warmup transitions, 1000 draws, target acceptance
// 0.75.
func NewSampler(m GradModel) *Sampler {
	return &Sampler{
		model:        m,
		chains:       4,
		warmup:       1000,
		draws:        1000,
		seed:         1,
		targetAccept: 0.75,
		jitter:       0.5,
	}
}

// Chains sets the number of chains.
func (s *Sampler) Chains(n int) *Sampler {
	s.chains = n
	return s
}

// Warmup sets the number of warmup transitions per chain.
func (s *Sampler) Warmup(n int) *Sampler {
	s.warmup = n
	return s
}

// Draws sets the number of retained draws per chain.
func (s *Sampler) Draws(n int) *Sampler {
	s.draws = n
	return s
}

// Seed sets the RNG seed; chain c uses seed+c.
func (s *Sampler) Seed(seed uint64) *Sampler {
	s.seed = seed
	return s
}

// MaxDepth sets the maximum NUTS tree depth.
func (s *Sampler) MaxDepth(d int) *Sampler {
	s.maxDepth = d
	return s
}

// TargetAccept sets the step-size adaptation target.
func (s *Sampler) TargetAccept(p float64) *Sampler {
	s.targetAccept = p
	return s
}

// InitialEps fixes the initial step size instead of searching for
// one.
func (s *Sampler) InitialEps(eps float64) *Sampler {
	s.initialEps = eps
	return s
}

// Jitter sets the scale of the random perturbation applied to the
// starting point of each chain.
func (s *Sampler) Jitter(scale float64) *Sampler {
	s.jitter = scale
	return s
}

// Log sets a logger receiving per-chain progress messages.
func (s *Sampler) Log(logger *log.Logger) *Sampler {
	s.logger = logger
	return s
}

// Run executes all chains starting from x0 and returns their draws.
func (s *Sampler) Run(x0 []float64) *Result {

	res := &Result{Chains: make([]ChainResult, s.chains)}

	var wg sync.WaitGroup
	for c := 0; c < s.chains; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			res.Chains[c] = s.runChain(c, x0)
		}(c)
	}
	wg.Wait()

	return res
}

func (s *Sampler) runChain(c int, x0 []float64) ChainResult {

	rng := rand.New(rand.NewSource(s.seed + uint64(c)))

	x := cloneVec(x0)
	for i := range x {
		x[i] += s.jitter * rng.NormFloat64()
	}

	eps := s.initialEps
	if eps == 0 {
		eps = FindReasonableEps(s.model, x, rng)
	}

	nuts := &NUTS{Eps: eps, MaxDepth: s.maxDepth}
	da := NewDualAveraging(eps, s.targetAccept)

	cr := ChainResult{
		Draws:       make([][]float64, 0, s.draws),
		Stats:       make([]StepStats, 0, s.draws),
		WarmupStats: make([]StepStats, 0, s.warmup),
	}

	for i := 0; i < s.warmup; i++ {
		st := nuts.Step(s.model, x, rng)
		nuts.Eps = da.Update(st.AcceptProb)
		cr.WarmupStats = append(cr.WarmupStats, st)
	}
	nuts.Eps = da.Final()

	var divergences int
	for i := 0; i < s.draws; i++ {
		st := nuts.Step(s.model, x, rng)
		if st.Divergent {
			divergences++
		}
		cr.Draws = append(cr.Draws, cloneVec(x))
		cr.Stats = append(cr.Stats, st)
	}

	if s.logger != nil {
		s.logger.Printf("chain %d: eps=%.3g, %d/%d divergent transitions\n",
			c, nuts.Eps, divergences, s.draws)
	}

	return cr
}
