package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradeOfBoundaries(t *testing.T) {
	cases := []struct {
		total float64
		want  ConductGrade
	}{
		{20, GradeTresBonne},
		{16, GradeTresBonne},
		{15.9, GradeBonne},
		{13, GradeBonne},
		{12.9, GradePassable},
		{10, GradePassable},
		{9.9, GradeMauvaise},
		{6, GradeMauvaise},
		{5.9, GradeBlame},
		{0, GradeBlame},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GradeOf(tc.total), "total %v", tc.total)
	}
}

func TestGradeRankOrdering(t *testing.T) {
	assert.Greater(t, GradeTresBonne.Rank(), GradeBonne.Rank())
	assert.Greater(t, GradeBonne.Rank(), GradePassable.Rank())
	assert.Greater(t, GradePassable.Rank(), GradeMauvaise.Rank())
	assert.Greater(t, GradeMauvaise.Rank(), GradeBlame.Rank())
}

func TestCategoryBudgetsSumToTotal(t *testing.T) {
	sum := CategoryAttendance.MaxPoints() +
		CategoryDresscode.MaxPoints() +
		CategoryMorality.MaxPoints() +
		CategoryDiscipline.MaxPoints()
	assert.InDelta(t, MaxTotalScore, sum, 1e-9)
}

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryDiscipline.Valid())
	assert.False(t, ConductCategory("HOMEWORK").Valid())
}

func TestCanManageConduct(t *testing.T) {
	assert.True(t, RoleSuperAdmin.CanManageConduct())
	assert.True(t, RoleDirector.CanManageConduct())
	assert.True(t, RoleEducator.CanManageConduct())
	assert.False(t, RoleTeacher.CanManageConduct())
	assert.False(t, RoleStudent.CanManageConduct())
}
