package services

import (
	"context"

	"github.com/camden-git/vanshavalibackend/kinship"
)

// Tree returns the descendant tree of the member raw, depth generations deep
// (0 means kinship.DefaultTreeDepth).
func (s *RelationService) Tree(ctx context.Context, raw string, depth int) (*kinship.TreeNode, error) {
	serNo, snap, err := s.member(ctx, raw)
	if err != nil {
		return nil, err
	}
	tree, anomalies, err := kinship.DescendantTree(snap.graph, serNo, depth)
	if err != nil {
		return nil, err
	}
	s.reportAnomalies(serNo, anomalies)
	return tree, nil
}

// Children lists the reconciled children of the member raw.
func (s *RelationService) Children(ctx context.Context, raw string) ([]kinship.MemberRef, error) {
	serNo, snap, err := s.member(ctx, raw)
	if err != nil {
		return nil, err
	}
	return snap.graph.Refs(snap.graph.Children(serNo)), nil
}

// Parents returns the reconciled parents of the member raw.
func (s *RelationService) Parents(ctx context.Context, raw string) (*kinship.ParentSet, error) {
	serNo, snap, err := s.member(ctx, raw)
	if err != nil {
		return nil, err
	}
	ps := snap.graph.ParentSet(serNo)
	return &ps, nil
}

// Graph exposes the current read-only snapshot of the member graph.
func (s *RelationService) Graph(ctx context.Context) (*kinship.Graph, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.graph, nil
}

func (s *RelationService) member(ctx context.Context, raw string) (int64, *snapshot, error) {
	serNo, err := kinship.ParseSerNo(raw)
	if err != nil {
		return 0, nil, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return 0, nil, err
	}
	if _, ok := snap.graph.Member(serNo); !ok {
		return 0, nil, &kinship.NotFoundError{SerNo: serNo}
	}
	return serNo, snap, nil
}
