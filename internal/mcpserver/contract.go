package mcpserver

// MetricDefinitions describes the derived metrics so LLM consumers can
// interpret tool output and ask for the right fields.
const MetricDefinitions = `# Glucolog Metric Definitions

All stored glucose values are mg/dL. Times are minutes after the first bite.

## Raw fields per meal

- pre_glucose: reading taken just before eating (40-400 mg/dL)
- peak_glucose: highest reading observed after the meal (40-400 mg/dL)
- peak_time_minutes: minutes from first bite to the peak reading (0-180)
- glucose_at_2hr: reading at the 2-hour mark (40-400 mg/dL)
- time_back_under_120: minutes until the reading fell below 120 mg/dL (0-300)

## Derived metrics

A meal is **complete** once pre_glucose, peak_glucose, peak_time_minutes and
glucose_at_2hr are all recorded. Derived metrics are recomputed from the raw
fields on every read; they are never stored.

- **spikeMagnitude** = peak_glucose - pre_glucose (needs both values)
- **spikeCategory** (complete meals only):
  - Mild: spike < 30
  - Moderate: 30 <= spike < 60
  - High: spike >= 60
- **durationCategory** (needs time_back_under_120):
  - Efficient: < 90 minutes
  - Acceptable: 90-150 minutes
  - Prolonged: > 150 minutes
- **aucProxy** (complete meals only): two-trapezoid area over a fixed
  120-minute window. The first trapezoid spans from the meal start to the
  peak time (clamped into 0-120), the second covers the remainder of the
  window to the 2-hour reading. Units are mg/dL-minutes, rounded to one
  decimal.
- **returnDelta** = glucose_at_2hr - pre_glucose. Negative means the
  2-hour reading came back below the pre-meal baseline.
- **mealPeriod** by local hour of the meal: morning [05:00, 11:00),
  afternoon [11:00, 17:00), evening [17:00, 22:00), late otherwise.

## Fasting entries

One reading per calendar date (40-400 mg/dL). Logging a second reading for
the same date overwrites the first.
`
