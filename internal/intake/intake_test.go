package intake

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/internship-recommender/internal/domain"
)

func completeForm() *FormState {
	f := NewFormState()
	f.SetBasicInfo(BasicInfo{Name: "Asha", CollegeName: "NIT Trichy", Year: "3"})
	f.SetAcademic(Academic{CGPA: "8.2", Stream: "Computer Science"})
	f.SetSkills(SkillSet{Technical: []string{"python", "sql"}})
	f.SetPreferences(Preferences{Location: "Pune", Duration: "3 months", Workload: "full-time"})
	f.SetConsent(Consent{Channel: "email", Allow: true})
	return f
}

func TestNewFormState_EmptySentinels(t *testing.T) {
	f := NewFormState()
	require.NotNil(t, f.Skills().Technical)
	require.NotNil(t, f.Skills().Legacy)
	assert.Empty(t, f.BasicInfo().Name)

	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"technical_skills":[]`)
	assert.Contains(t, string(b), `"skills":[]`)
}

func TestFormState_JSONRoundTrip(t *testing.T) {
	f := completeForm()
	b, err := json.Marshal(f)
	require.NoError(t, err)

	got := NewFormState()
	require.NoError(t, json.Unmarshal(b, got))
	assert.Equal(t, f.BasicInfo(), got.BasicInfo())
	assert.Equal(t, f.Skills(), got.Skills())
	assert.Equal(t, f.Consent(), got.Consent())
}

func TestFormState_UnmarshalMissingGroupsStayEmpty(t *testing.T) {
	f := completeForm()
	require.NoError(t, json.Unmarshal([]byte(`{"basic_info":{"name":"Ravi"}}`), f))
	assert.Equal(t, "Ravi", f.BasicInfo().Name)
	assert.Empty(t, f.Preferences().Location)
	assert.NotNil(t, f.Skills().Technical)
	assert.Empty(t, f.Skills().Technical)
}

func TestFormState_CloneIsDeep(t *testing.T) {
	f := completeForm()
	c := f.Clone()
	s := f.Skills()
	s.Technical[0] = "changed"
	f.SetSkills(SkillSet{Technical: []string{"go"}})
	assert.Equal(t, []string{"python", "sql"}, c.Skills().Technical)
}

func TestValidateStep(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(f *FormState)
		step   Step
		fields []string
	}{
		{"basic missing name", func(f *FormState) { b := f.BasicInfo(); b.Name = "  "; f.SetBasicInfo(b) }, StepBasicInfo, []string{"name"}},
		{"basic missing year and college", func(f *FormState) { f.SetBasicInfo(BasicInfo{Name: "A"}) }, StepBasicInfo, []string{"college_name", "year"}},
		{"skills empty", func(f *FormState) { f.SetSkills(SkillSet{Technical: []string{" "}}) }, StepSkills, []string{"technical_skills"}},
		{"preferences workload", func(f *FormState) { p := f.Preferences(); p.Workload = ""; f.SetPreferences(p) }, StepPreferences, []string{"workload"}},
		{"consent not allowed", func(f *FormState) { f.SetConsent(Consent{Channel: "sms"}) }, StepConsent, []string{"allow"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := completeForm()
			tc.mutate(f)
			err := f.ValidateStep(tc.step)
			var sve *domain.StepValidationError
			require.True(t, errors.As(err, &sve), "got %v", err)
			assert.ElementsMatch(t, tc.fields, sve.Fields)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestValidateStep_LegacySkillsSatisfy(t *testing.T) {
	f := NewFormState()
	f.SetSkills(SkillSet{Legacy: []string{"excel"}})
	assert.True(t, f.StepValid(StepSkills))
}

func TestValidateStep_OptionalStepsAlwaysPass(t *testing.T) {
	f := NewFormState()
	for _, st := range []Step{StepAcademic, StepResume, StepFairness} {
		assert.True(t, f.StepValid(st), st)
	}
	assert.ErrorIs(t, f.ValidateStep(Step("bogus")), domain.ErrInvalidArgument)
}

func TestValidity_RecomputedAfterEdit(t *testing.T) {
	f := NewFormState()
	assert.False(t, f.Validity()[StepBasicInfo])
	f.SetBasicInfo(BasicInfo{Name: "A", CollegeName: "B", Year: "1"})
	assert.True(t, f.Validity()[StepBasicInfo])

	st, ok := f.FirstInvalidStep()
	require.True(t, ok)
	assert.Equal(t, StepSkills, st)

	_, ok = completeForm().FirstInvalidStep()
	assert.False(t, ok)
}

func TestParseStep(t *testing.T) {
	st, err := ParseStep(" Preferences ")
	require.NoError(t, err)
	assert.Equal(t, StepPreferences, st)
	_, err = ParseStep("payment")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestCheckSufficiency(t *testing.T) {
	err := CheckSufficiency(NewFormState())
	var ide *domain.InsufficientDataError
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, []string{RequiredName, RequiredEducation, RequiredSkillsOrExperience}, ide.Missing)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	assert.NoError(t, CheckSufficiency(completeForm()))

	f := NewFormState()
	f.SetBasicInfo(BasicInfo{Name: "A"})
	f.SetResume(ResumeDerived{EducationText: "BSc", ExperienceText: "Intern at X"})
	assert.NoError(t, CheckSufficiency(f))
}

func TestSession_AdvanceGated(t *testing.T) {
	s := NewStore().Create()
	_, err := s.Advance()
	require.Error(t, err)
	assert.Equal(t, StepBasicInfo, s.Current())

	s.Update(func(f *FormState) { f.SetBasicInfo(BasicInfo{Name: "A", CollegeName: "B", Year: "2"}) })
	st, err := s.Advance()
	require.NoError(t, err)
	assert.Equal(t, StepAcademic, st)

	st, err = s.Advance()
	require.NoError(t, err)
	assert.Equal(t, StepResume, st)
	assert.Equal(t, StepAcademic, s.Back())

	s.Reset()
	assert.Equal(t, StepBasicInfo, s.Current())
	assert.Empty(t, s.Snapshot().BasicInfo().Name)
}

func TestSession_AdvanceStaysOnLastStep(t *testing.T) {
	s := NewStore().Create()
	s.Update(func(f *FormState) { *f = *completeForm() })
	for i := 0; i < len(Steps)+2; i++ {
		_, err := s.Advance()
		require.NoError(t, err)
	}
	assert.Equal(t, StepConsent, s.Current())
}

func TestStore_GetDeleteSweep(t *testing.T) {
	st := NewStore()
	s := st.Create()
	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	st.Delete(s.ID)
	_, err = st.Get(s.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	st.Create()
	st.Create()
	assert.Equal(t, 0, st.Sweep(time.Hour))
	st.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.Equal(t, 2, st.Sweep(time.Hour))
	assert.Equal(t, 0, st.Len())
}

func TestStore_RunPeriodicStopsOnCancel(t *testing.T) {
	st := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.RunPeriodic(ctx, time.Hour, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
