package families

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"GridCast/internal/domain/models"
	domsvc "GridCast/internal/domain/service"
)

// GBRT is a gradient boosted regression tree family trained on the lag and
// feature design matrix. Tree growth is leaf-wise with a num_leaves cap and
// fully deterministic: no subsampling, ties broken by feature index then
// threshold. Hyperparameters: num_rounds, learning_rate, num_leaves,
// min_samples_leaf.
type GBRT struct{}

func NewGBRT() *GBRT { return &GBRT{} }

func (*GBRT) Name() string { return "gbrt" }

func (*GBRT) Fit(ctx context.Context, train models.FeatureFrame, spec models.CandidateSpec, seed int64) (domsvc.FittedModel, error) {
	x, y, err := designMatrix(train, spec)
	if err != nil {
		return nil, err
	}

	rounds := spec.IntParam("num_rounds", 100)
	leaves := spec.IntParam("num_leaves", 31)
	minLeaf := spec.IntParam("min_samples_leaf", 5)
	lr := spec.Param("learning_rate", 0.1)
	if rounds <= 0 || leaves < 2 || lr <= 0 {
		return nil, fmt.Errorf("gbrt: invalid hyperparameters rounds=%d leaves=%d lr=%g", rounds, leaves, lr)
	}

	base := mean(y)
	resid := make([]float64, len(y))
	for i := range y {
		resid[i] = y[i] - base
	}

	m := &gbrtModel{
		Spec:         spec,
		Base:         base,
		LearningRate: lr,
		Seed:         seed,
		train:        train,
	}

	for r := 0; r < rounds; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tree := growTree(x, resid, leaves, minLeaf)
		if tree == nil {
			break
		}
		for i := range x {
			resid[i] -= lr * evalTree(tree, x[i])
		}
		m.Trees = append(m.Trees, tree)
	}
	return m, nil
}

type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
}

type gbrtModel struct {
	Spec         models.CandidateSpec `json:"spec"`
	Base         float64              `json:"base"`
	LearningRate float64              `json:"learning_rate"`
	Seed         int64                `json:"seed"`
	Trees        [][]treeNode         `json:"trees"`

	train models.FeatureFrame
}

func (m *gbrtModel) predictRow(row []float64) float64 {
	v := m.Base
	for _, t := range m.Trees {
		v += m.LearningRate * evalTree(t, row)
	}
	return v
}

func (m *gbrtModel) Forecast(test models.FeatureFrame, horizon int) ([]models.Prediction, error) {
	return forecastRecursive(m.train, test, m.Spec, horizon, m.predictRow)
}

func (m *gbrtModel) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func evalTree(nodes []treeNode, row []float64) float64 {
	i := 0
	for !nodes[i].Leaf {
		if row[nodes[i].Feature] <= nodes[i].Threshold {
			i = nodes[i].Left
		} else {
			i = nodes[i].Right
		}
	}
	return nodes[i].Value
}

// growNode is a tree node under construction.
type growNode struct {
	idx         []int
	sum         float64
	feature     int
	threshold   float64
	gain        float64
	canSplit    bool
	left, right *growNode
}

// growTree fits one regression tree to the residuals. Returns nil when not
// even the root can be split.
func growTree(x [][]float64, resid []float64, maxLeaves, minLeaf int) []treeNode {
	all := make([]int, len(resid))
	for i := range all {
		all[i] = i
	}
	root := newGrowNode(all, resid)
	findBestSplit(root, x, resid, minLeaf)
	if !root.canSplit {
		return nil
	}

	leaves := []*growNode{root}
	for len(leaves) < maxLeaves {
		best := -1
		for i, lf := range leaves {
			if lf.canSplit && (best < 0 || lf.gain > leaves[best].gain) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		lf := leaves[best]

		var li, ri []int
		for _, i := range lf.idx {
			if x[i][lf.feature] <= lf.threshold {
				li = append(li, i)
			} else {
				ri = append(ri, i)
			}
		}
		lf.left = newGrowNode(li, resid)
		lf.right = newGrowNode(ri, resid)
		findBestSplit(lf.left, x, resid, minLeaf)
		findBestSplit(lf.right, x, resid, minLeaf)

		leaves[best] = lf.left
		leaves = append(leaves, lf.right)
	}

	var flat []treeNode
	flatten(root, &flat)
	return flat
}

func newGrowNode(idx []int, resid []float64) *growNode {
	n := &growNode{idx: idx}
	for _, i := range idx {
		n.sum += resid[i]
	}
	return n
}

func flatten(n *growNode, out *[]treeNode) int {
	pos := len(*out)
	if n.left == nil {
		*out = append(*out, treeNode{Leaf: true, Value: n.sum / float64(len(n.idx))})
		return pos
	}
	*out = append(*out, treeNode{Feature: n.feature, Threshold: n.threshold})
	l := flatten(n.left, out)
	r := flatten(n.right, out)
	(*out)[pos].Left = l
	(*out)[pos].Right = r
	return pos
}

// findBestSplit scans every feature for the variance-reduction-optimal split.
// Ties keep the lower feature index, then the lower threshold, so repeated
// fits on identical data build identical trees.
func findBestSplit(n *growNode, x [][]float64, resid []float64, minLeaf int) {
	total := len(n.idx)
	if total < 2*minLeaf {
		return
	}
	baseScore := n.sum * n.sum / float64(total)

	nFeatures := len(x[n.idx[0]])
	order := make([]int, total)
	for f := 0; f < nFeatures; f++ {
		copy(order, n.idx)
		sort.SliceStable(order, func(a, b int) bool {
			if x[order[a]][f] != x[order[b]][f] {
				return x[order[a]][f] < x[order[b]][f]
			}
			return order[a] < order[b]
		})

		sumL := 0.0
		for i := 0; i < total-1; i++ {
			sumL += resid[order[i]]
			if x[order[i]][f] == x[order[i+1]][f] {
				continue
			}
			nL := i + 1
			nR := total - nL
			if nL < minLeaf || nR < minLeaf {
				continue
			}
			sumR := n.sum - sumL
			gain := sumL*sumL/float64(nL) + sumR*sumR/float64(nR) - baseScore
			if gain > n.gain+1e-12 {
				n.gain = gain
				n.feature = f
				n.threshold = (x[order[i]][f] + x[order[i+1]][f]) / 2
				n.canSplit = true
			}
		}
	}
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
