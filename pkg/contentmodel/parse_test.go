package contentmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCDS_RejectsWrongRootElement(t *testing.T) {
	_, err := ParseCDS(`<content-item content-type="image/jpeg"/>`)
	require.Error(t, err)
}

func TestParseCDS_RemoteSetRequiresOneFile(t *testing.T) {
	set, err := ParseCDS(`
		<content-set type="remote">
			<requires-file>
				<sources><uri refresh="60">http://example.com/feed.xml</uri></sources>
				<hashes><hash type="sha1">abc123</hash></hashes>
			</requires-file>
		</content-set>`)
	require.NoError(t, err)

	assert.Equal(t, SetTypeRemote, set.Type)
	require.NotNil(t, set.RequiresFile)
	assert.Equal(t, "http://example.com/feed.xml", set.RequiresFile.PrimaryURI())
	assert.Equal(t, "abc123", set.RequiresFile.Hashes["sha1"])
	require.NotNil(t, set.RequiresFile.Sources[0].Refresh)
	assert.Equal(t, int64(60), *set.RequiresFile.Sources[0].Refresh)
}

func TestParseCDS_InlineSetWithNestedItemsPreservesOrder(t *testing.T) {
	set, err := ParseCDS(`
		<content-set type="inline">
			<content-item content-type="image/jpeg" size="100">
				<requires-file><sources><uri>file:///a.jpg</uri></sources></requires-file>
			</content-item>
			<content-item content-type="image/png" size="200">
				<requires-file><sources><uri>file:///b.png</uri></sources></requires-file>
			</content-item>
		</content-set>`)
	require.NoError(t, err)

	assert.Equal(t, SetTypeInline, set.Type)
	require.Len(t, set.Children, 2)

	first, ok := set.Children[0].(*Item)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", first.ContentType)
	assert.Equal(t, int64(100), first.Size)

	second, ok := set.Children[1].(*Item)
	require.True(t, ok)
	assert.Equal(t, "image/png", second.ContentType)
}

func TestParseCDS_NestedRemoteContentSetPlaceholder(t *testing.T) {
	set, err := ParseCDS(`
		<content-set type="inline">
			<content-set type="remote">
				<requires-file><sources><uri>http://example.com/nested.xml</uri></sources></requires-file>
			</content-set>
		</content-set>`)
	require.NoError(t, err)

	require.Len(t, set.Children, 1)
	nested, ok := set.Children[0].(*Set)
	require.True(t, ok)
	assert.Equal(t, SetTypeRemote, nested.Type)
	assert.Equal(t, "http://example.com/nested.xml", nested.RequiresFile.PrimaryURI())
}

func TestParseCDS_ContentItemWithoutRequiresFileIsDropped(t *testing.T) {
	set, err := ParseCDS(`
		<content-set type="inline">
			<content-item content-type="image/jpeg" size="1"/>
			<content-item content-type="image/png" size="2">
				<requires-file><sources><uri>file:///ok.png</uri></sources></requires-file>
			</content-item>
		</content-set>`)
	require.NoError(t, err)
	require.Len(t, set.Children, 1)
	item := set.Children[0].(*Item)
	assert.Equal(t, "image/png", item.ContentType)
}

func TestParseCDS_DecodesSchedulingConstraintsAndIgnoresOutputConstraints(t *testing.T) {
	set, err := ParseCDS(`
		<content-set type="inline">
			<constraints>
				<scheduling-constraints>
					<date><between start="2026-01-01" end="2026-01-31"/></date>
					<priority level="high"/>
					<preferred-duration>4.5</preferred-duration>
					<playback order="random" ratio="50%" avoid-context-switch="true"/>
				</scheduling-constraints>
				<output-constraints>
					<some-renderer-hint value="1"/>
				</output-constraints>
			</constraints>
		</content-set>`)
	require.NoError(t, err)
	require.Len(t, set.ConstraintSet, 4)

	date, ok := set.ConstraintSet[0].(DateConstraint)
	require.True(t, ok)
	assert.Equal(t, 2026, date.Start.Year())

	prio, ok := set.ConstraintSet[1].(PriorityConstraint)
	require.True(t, ok)
	assert.Equal(t, PriorityHigh, prio.Level)

	dur, ok := set.ConstraintSet[2].(PreferredDurationConstraint)
	require.True(t, ok)
	assert.Equal(t, 4.5, dur.Seconds)

	playback, ok := set.ConstraintSet[3].(PlaybackConstraint)
	require.True(t, ok)
	assert.Equal(t, PlaybackRandom, playback.Order)
	require.NotNil(t, playback.Ratio)
	assert.Equal(t, 0.5, *playback.Ratio)
	assert.True(t, playback.AvoidContextSwitch)
}

func TestParseCDS_DayOfWeekBetweenForm(t *testing.T) {
	set, err := ParseCDS(`
		<content-set type="inline">
			<constraints><scheduling-constraints>
				<day-of-week><between start="friday" end="monday"/></day-of-week>
			</scheduling-constraints></constraints>
		</content-set>`)
	require.NoError(t, err)
	require.Len(t, set.ConstraintSet, 1)

	dow := set.ConstraintSet[0].(DayOfWeekConstraint)
	require.NotNil(t, dow.BetweenDays)
	assert.Equal(t, 4, dow.BetweenDays.StartDay)
	assert.Equal(t, 0, dow.BetweenDays.EndDay)
}

func TestParseCDS_DayOfWeekPerWeekdayForm(t *testing.T) {
	set, err := ParseCDS(`
		<content-set type="inline">
			<constraints><scheduling-constraints>
				<day-of-week>
					<monday time_start="06:00:00" time_end="20:00:00"/>
					<sunday time_start="10:00:00" time_end="14:00:00"/>
				</day-of-week>
			</scheduling-constraints></constraints>
		</content-set>`)
	require.NoError(t, err)

	dow := set.ConstraintSet[0].(DayOfWeekConstraint)
	require.NotNil(t, dow.PerWeekday[0])
	assert.Equal(t, 6*time.Hour, dow.PerWeekday[0].Start)
	require.NotNil(t, dow.PerWeekday[6])
	assert.Nil(t, dow.PerWeekday[1])
}

func TestParseContentItem_RoundTripsRawXML(t *testing.T) {
	raw := `<content-item content-type="image/jpeg" size="42"><requires-file><sources><uri>file:///x.jpg</uri></sources></requires-file></content-item>`
	item, err := ParseContentItem(raw)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", item.ContentType)
	assert.Equal(t, int64(42), item.Size)
	assert.Equal(t, raw, item.RawXML)
}

func TestParseContentItem_RejectsWrongRootElement(t *testing.T) {
	_, err := ParseContentItem(`<content-set type="inline"/>`)
	require.Error(t, err)
}
